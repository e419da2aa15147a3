// Package domain holds the pure data types shared by the backtest core.
// Types here have no infrastructure dependencies.
package domain

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// PriceSeries is an ordered sequence of (date, adjusted price) observations
// for one symbol. Dates are strictly ascending with no duplicates; gaps are
// allowed (sparse trading calendars). A series is immutable once built -
// Truncate returns views that share the underlying arrays, so callers must
// never mutate the slices returned by Dates or Prices.
type PriceSeries struct {
	symbol string
	dates  []time.Time
	prices []float64
}

// NewPriceSeries builds a validated price series. Dates must be strictly
// ascending; the two slices must have equal, non-zero length.
func NewPriceSeries(symbol string, dates []time.Time, prices []float64) (*PriceSeries, error) {
	if len(dates) != len(prices) {
		return nil, fmt.Errorf("series %s: %d dates but %d prices", symbol, len(dates), len(prices))
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("series %s: empty", symbol)
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("series %s: dates not strictly ascending at index %d (%s >= %s)",
				symbol, i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	return &PriceSeries{symbol: symbol, dates: dates, prices: prices}, nil
}

// Symbol returns the instrument symbol.
func (s *PriceSeries) Symbol() string { return s.symbol }

// Len returns the number of observations.
func (s *PriceSeries) Len() int { return len(s.dates) }

// Dates returns the observation dates. Read-only.
func (s *PriceSeries) Dates() []time.Time { return s.dates }

// Prices returns the adjusted prices. Read-only.
func (s *PriceSeries) Prices() []float64 { return s.prices }

// FirstDate returns the earliest observation date.
func (s *PriceSeries) FirstDate() time.Time { return s.dates[0] }

// LastDate returns the latest observation date.
func (s *PriceSeries) LastDate() time.Time { return s.dates[len(s.dates)-1] }

// Truncate returns the point-in-time view of the series containing only
// observations with date <= asof. This truncation is the no-look-ahead
// guarantee: indicator and regime decisions for a date may only ever see
// the series returned here. Returns nil when no observation qualifies.
func (s *PriceSeries) Truncate(asof time.Time) *PriceSeries {
	n := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(asof) })
	if n == 0 {
		return nil
	}
	return &PriceSeries{symbol: s.symbol, dates: s.dates[:n], prices: s.prices[:n]}
}

// PriceOnOrBefore returns the most recent price observed at or before the
// given date. The boolean is false when the series has no observation at or
// before the date.
func (s *PriceSeries) PriceOnOrBefore(date time.Time) (float64, bool) {
	n := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(date) })
	if n == 0 {
		return 0, false
	}
	return s.prices[n-1], true
}

// UniverseProvider materializes the candidate universe: one price series per
// symbol, plus the symbol order used for deterministic tie-breaking.
type UniverseProvider interface {
	Universe(ctx context.Context) (map[string]*PriceSeries, []string, error)
}

// BenchmarkProvider materializes the benchmark instrument's price series.
type BenchmarkProvider interface {
	Benchmark(ctx context.Context) (*PriceSeries, error)
}
