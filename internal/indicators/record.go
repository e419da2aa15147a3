package indicators

import "math"

// Record is the point-in-time indicator snapshot for one symbol at one asof
// date. A record is either fully Valid or Insufficient - never partially
// populated. Volatility may still be NaN on a Valid record when the history
// holds fewer than MinReturnObservations returns; callers must treat that as
// disqualifying for ranking.
type Record struct {
	Symbol       string
	Momentum6M   float64
	Momentum12M  float64
	MAShort      float64
	MALong       float64
	AboveLongMA  bool
	Volatility   float64
	MaxDrawdown  float64
	CurrentPrice float64
	Insufficient bool
}

// NewInsufficient returns the sentinel record excluding a symbol from
// ranking for the period.
func NewInsufficient(symbol string) Record {
	return Record{
		Symbol:       symbol,
		Momentum6M:   math.NaN(),
		Momentum12M:  math.NaN(),
		MAShort:      math.NaN(),
		MALong:       math.NaN(),
		Volatility:   math.NaN(),
		MaxDrawdown:  math.NaN(),
		CurrentPrice: math.NaN(),
		Insufficient: true,
	}
}

// DisqualifyReason reports whether the record is unusable for ranking and
// why. The ranking engine and the per-period audit both use this predicate
// so exclusions stay consistent.
func (r Record) DisqualifyReason() (string, bool) {
	if r.Insufficient {
		return "insufficient history", true
	}
	if math.IsNaN(r.Momentum6M) || math.IsNaN(r.Momentum12M) {
		return "undefined momentum", true
	}
	if math.IsNaN(r.Volatility) {
		return "undefined volatility", true
	}
	return "", false
}
