// Package backtest runs the monthly rotation simulation: it derives the
// rebalance schedule from the benchmark calendar, selects a portfolio at each
// boundary using only point-in-time data, realizes period returns, and
// aggregates the resulting timeline into performance statistics.
package backtest

import (
	"errors"
	"time"

	"github.com/aristath/rotor/internal/domain"
)

// ErrTooFewRebalanceDates means the benchmark history spans fewer than two
// month boundaries, so not even a single period can be simulated.
var ErrTooFewRebalanceDates = errors.New("benchmark series yields fewer than two rebalance dates")

// MonthEnds returns one date per distinct (year, month) in the benchmark
// series: the last date observed in that month, in ascending order. At least
// two dates are required for a simulation.
func MonthEnds(benchmark *domain.PriceSeries) ([]time.Time, error) {
	if benchmark == nil || benchmark.Len() == 0 {
		return nil, ErrTooFewRebalanceDates
	}

	dates := benchmark.Dates()
	var out []time.Time
	for i, d := range dates {
		if i+1 < len(dates) {
			next := dates[i+1]
			if next.Year() == d.Year() && next.Month() == d.Month() {
				continue
			}
		}
		out = append(out, d)
	}

	if len(out) < 2 {
		return nil, ErrTooFewRebalanceDates
	}
	return out, nil
}
