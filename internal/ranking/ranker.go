// Package ranking normalizes per-date indicator records and combines them
// into composite scores.
package ranking

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/indicators"
)

// Weights holds the factor weights of the composite score.
type Weights struct {
	Momentum6M  float64
	Momentum12M float64
	AboveLongMA float64
	Volatility  float64 // applied to the inverted volatility score
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Momentum6M + w.Momentum12M + w.AboveLongMA + w.Volatility
}

// Entry is one ranked symbol. Rank 1 is best. Entries are produced fresh per
// asof date and never mutated afterwards.
type Entry struct {
	Symbol string
	Score  float64
	Rank   int
	Record indicators.Record
}

// Ranker ranks symbols by weighted combination of normalized factors.
type Ranker struct {
	weights Weights
	log     zerolog.Logger
}

// NewRanker creates a ranker. Weights that do not sum to 1 are accepted with
// a warning; scores simply scale accordingly.
func NewRanker(weights Weights, log zerolog.Logger) *Ranker {
	l := log.With().Str("component", "ranker").Logger()
	if math.Abs(weights.Sum()-1.0) > 0.01 {
		l.Warn().
			Float64("sum", weights.Sum()).
			Msg("Ranking weights do not sum to 1.0")
	}
	return &Ranker{weights: weights, log: l}
}

// Rank scores the given records and returns them ordered best-first.
// Records with insufficient history or undefined momentum/volatility are
// discarded. Ties keep the input order (stable sort), so callers control
// tie-breaking by the order they pass records in. An empty result means no
// eligible portfolio this period.
func (r *Ranker) Rank(records []indicators.Record) []Entry {
	survivors := make([]indicators.Record, 0, len(records))
	for _, rec := range records {
		if _, bad := rec.DisqualifyReason(); bad {
			continue
		}
		survivors = append(survivors, rec)
	}

	if dropped := len(records) - len(survivors); dropped > 0 {
		r.log.Debug().
			Int("dropped", dropped).
			Int("survivors", len(survivors)).
			Msg("Filtered records with missing data")
	}
	if len(survivors) == 0 {
		return nil
	}

	norm6 := normalize(survivors, func(rec indicators.Record) float64 { return rec.Momentum6M }, false)
	norm12 := normalize(survivors, func(rec indicators.Record) float64 { return rec.Momentum12M }, false)
	normVol := normalize(survivors, func(rec indicators.Record) float64 { return rec.Volatility }, true)

	entries := make([]Entry, len(survivors))
	for i, rec := range survivors {
		trend := 0.0
		if rec.AboveLongMA {
			trend = 1.0
		}
		score := r.weights.Momentum6M*norm6[i] +
			r.weights.Momentum12M*norm12[i] +
			r.weights.AboveLongMA*trend +
			r.weights.Volatility*normVol[i]
		entries[i] = Entry{Symbol: rec.Symbol, Score: score, Record: rec}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// TopN returns the first n entries (fewer when the ranking is shorter).
func TopN(entries []Entry, n int) []Entry {
	if n > len(entries) {
		n = len(entries)
	}
	if n < 0 {
		n = 0
	}
	return entries[:n]
}

// normalize min-max scales one factor across the survivor set to [0,1].
// A constant factor maps every symbol to 0.5 rather than failing. Invert
// flips the scale for factors where lower is better.
func normalize(records []indicators.Record, factor func(indicators.Record) float64, invert bool) []float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, rec := range records {
		v := factor(rec)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(records))
	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	for i, rec := range records {
		v := (factor(rec) - min) / (max - min)
		if invert {
			v = 1 - v
		}
		out[i] = v
	}
	return out
}
