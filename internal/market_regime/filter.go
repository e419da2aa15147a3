// Package market_regime decides whether the market regime allows being
// invested, based on the benchmark's price relative to its long moving
// average.
package market_regime

import (
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/domain"
)

// State is the binary invested/cash decision.
type State string

const (
	// StateInvested - the benchmark trades at or above its long moving average.
	StateInvested State = "invested"
	// StateCash - the benchmark trades strictly below its long moving average.
	StateCash State = "cash"
)

// DefaultLookback is the moving-average window in trading observations.
const DefaultLookback = 200

// Filter evaluates the regime as of a date using only benchmark
// observations at or before that date.
type Filter struct {
	lookback int
	log      zerolog.Logger
}

// NewFilter creates a regime filter. A non-positive lookback falls back to
// DefaultLookback.
func NewFilter(lookback int, log zerolog.Logger) *Filter {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Filter{
		lookback: lookback,
		log:      log.With().Str("component", "market_regime").Logger(),
	}
}

// State returns the regime decision as of the given date. When fewer than
// lookback observations exist the filter fails open to invested: early in
// history there is no trend evidence either way, and the documented bias is
// toward staying in the market.
func (f *Filter) State(benchmark *domain.PriceSeries, asof time.Time) State {
	if benchmark == nil {
		return StateInvested
	}

	pit := benchmark.Truncate(asof)
	if pit == nil || pit.Len() < f.lookback {
		f.log.Debug().
			Time("asof", asof).
			Int("observations", pitLen(pit)).
			Int("lookback", f.lookback).
			Msg("Benchmark history shorter than lookback, staying invested")
		return StateInvested
	}

	prices := pit.Prices()
	window := prices[len(prices)-f.lookback:]
	sma := talib.Sma(window, f.lookback)
	ma := sma[len(sma)-1]
	current := prices[len(prices)-1]

	if current < ma {
		f.log.Debug().
			Time("asof", asof).
			Float64("price", current).
			Float64("ma", ma).
			Msg("Benchmark below long MA, regime is cash")
		return StateCash
	}
	return StateInvested
}

func pitLen(s *domain.PriceSeries) int {
	if s == nil {
		return 0
	}
	return s.Len()
}
