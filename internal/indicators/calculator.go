// Package indicators computes point-in-time trend and momentum indicators
// from price series. All computations restrict the series to observations
// dated at or before the asof date before touching any number; nothing in
// this package may ever read past that boundary.
package indicators

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/domain"
)

const (
	// TradingDaysPerYear is the annualization base for daily volatility.
	TradingDaysPerYear = 252
	// MinReturnObservations is the minimum number of daily returns required
	// before volatility is considered defined.
	MinReturnObservations = 20
)

// Calculator computes indicator records. It is safe for concurrent use:
// per-series rolling accumulators are built once and shared across asof
// queries, so repeated point-in-time evaluations over the same series cost
// O(log n) instead of a full rescan.
type Calculator struct {
	mom6Days  int
	mom12Days int
	maShort   int
	maLong    int
	log       zerolog.Logger

	mu    sync.Mutex
	stats map[*domain.PriceSeries]*seriesStats
}

// NewCalculator creates an indicator calculator with the given lookback
// windows (trading observations).
func NewCalculator(mom6Days, mom12Days, maShort, maLong int, log zerolog.Logger) *Calculator {
	return &Calculator{
		mom6Days:  mom6Days,
		mom12Days: mom12Days,
		maShort:   maShort,
		maLong:    maLong,
		log:       log.With().Str("component", "indicators").Logger(),
		stats:     make(map[*domain.PriceSeries]*seriesStats),
	}
}

// Compute returns the indicator record for one symbol as of one date, using
// only observations dated at or before asof. Histories shorter than the long
// momentum window yield an Insufficient record, as does a zero price at the
// momentum reference point.
func (c *Calculator) Compute(series *domain.PriceSeries, asof time.Time) Record {
	if series == nil {
		return NewInsufficient("")
	}

	pit := series.Truncate(asof)
	if pit == nil || pit.Len() < c.mom12Days {
		return NewInsufficient(series.Symbol())
	}

	st := c.statsFor(series)
	prices := pit.Prices()
	n := pit.Len()
	idx := n - 1 // pit is a prefix view, so accumulator indices align

	current := prices[idx]

	mom6, ok6 := momentum(prices, c.mom6Days)
	mom12, ok12 := momentum(prices, c.mom12Days)
	if !ok6 || !ok12 {
		// Zero price at the reference observation: the ratio is undefined
		// and the symbol sits out this period.
		return NewInsufficient(series.Symbol())
	}

	rec := Record{
		Symbol:       series.Symbol(),
		Momentum6M:   mom6,
		Momentum12M:  mom12,
		MAShort:      st.windowMean(n, c.maShort),
		MALong:       st.windowMean(n, c.maLong),
		Volatility:   st.annualizedVolatility(idx),
		MaxDrawdown:  st.maxDrawdown(idx),
		CurrentPrice: current,
	}
	rec.AboveLongMA = current > rec.MALong

	return rec
}

// RelativeStrength returns the stock's momentum minus the benchmark's
// momentum over the lookback window, computed on their common trading
// dates. NaN when fewer than lookback common observations exist or either
// momentum is undefined. Used by screening only.
func (c *Calculator) RelativeStrength(stock, benchmark *domain.PriceSeries, lookback int) float64 {
	if stock == nil || benchmark == nil {
		return math.NaN()
	}

	benchByDate := make(map[time.Time]float64, benchmark.Len())
	benchDates := benchmark.Dates()
	benchPrices := benchmark.Prices()
	for i, d := range benchDates {
		benchByDate[d] = benchPrices[i]
	}

	var stockAligned, benchAligned []float64
	stockDates := stock.Dates()
	stockPrices := stock.Prices()
	for i, d := range stockDates {
		if bp, ok := benchByDate[d]; ok {
			stockAligned = append(stockAligned, stockPrices[i])
			benchAligned = append(benchAligned, bp)
		}
	}

	if len(stockAligned) < lookback {
		return math.NaN()
	}

	sm, okS := momentum(stockAligned, lookback)
	bm, okB := momentum(benchAligned, lookback)
	if !okS || !okB {
		return math.NaN()
	}
	return sm - bm
}

// momentum is the fractional return between the latest price and the price
// lookback observations ago: (last - past) / past. The boolean is false when
// the window does not fit or the reference price is zero.
func momentum(prices []float64, lookback int) (float64, bool) {
	n := len(prices)
	if n < lookback || lookback <= 0 {
		return math.NaN(), false
	}
	past := prices[n-lookback]
	if past == 0 || math.IsNaN(past) {
		return math.NaN(), false
	}
	return (prices[n-1] - past) / past, true
}

// statsFor returns the shared accumulator for a series, building it on
// first use.
func (c *Calculator) statsFor(series *domain.PriceSeries) *seriesStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.stats[series]; ok {
		return st
	}
	st := newSeriesStats(series.Prices())
	c.stats[series] = st
	return st
}

// seriesStats holds prefix accumulators over one immutable price series so
// that every rolling statistic is answerable in O(1) for any prefix length.
//
// For observation index i (0-based):
//   - prefix[i+1] is the sum of prices[0..i]
//   - retCount/retMean/retM2 carry Welford running statistics over the daily
//     percentage returns r_1..r_i (sample variance = M2/(count-1))
//   - minDrawdown[i] is the most negative (cumulative/runningMax - 1) seen
//     over returns up to i
type seriesStats struct {
	prefix      []float64
	retCount    []int
	retMean     []float64
	retM2       []float64
	minDrawdown []float64
}

func newSeriesStats(prices []float64) *seriesStats {
	n := len(prices)
	st := &seriesStats{
		prefix:      make([]float64, n+1),
		retCount:    make([]int, n),
		retMean:     make([]float64, n),
		retM2:       make([]float64, n),
		minDrawdown: make([]float64, n),
	}

	cum := 1.0
	runMax := 1.0
	minDD := 0.0

	for i := 0; i < n; i++ {
		st.prefix[i+1] = st.prefix[i] + prices[i]

		if i == 0 {
			continue
		}

		// Carry forward, then fold in the i-th return if it is defined.
		st.retCount[i] = st.retCount[i-1]
		st.retMean[i] = st.retMean[i-1]
		st.retM2[i] = st.retM2[i-1]
		st.minDrawdown[i] = st.minDrawdown[i-1]

		prev := prices[i-1]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(prices[i]) {
			continue
		}
		r := (prices[i] - prev) / prev

		// Welford update keeps the variance numerically stable on long
		// histories.
		st.retCount[i]++
		cnt := float64(st.retCount[i])
		delta := r - st.retMean[i]
		st.retMean[i] += delta / cnt
		st.retM2[i] += delta * (r - st.retMean[i])

		cum *= 1 + r
		if cum > runMax {
			runMax = cum
		}
		if dd := cum/runMax - 1; dd < minDD {
			minDD = dd
		}
		st.minDrawdown[i] = minDD
	}

	return st
}

// windowMean returns the arithmetic mean of the trailing window of prices
// ending at observation n-1. NaN when the window does not fit.
func (st *seriesStats) windowMean(n, window int) float64 {
	if window <= 0 || n < window {
		return math.NaN()
	}
	return (st.prefix[n] - st.prefix[n-window]) / float64(window)
}

// annualizedVolatility returns the sample standard deviation of the daily
// returns observed up to index idx, annualized by sqrt(252). NaN below
// MinReturnObservations returns.
func (st *seriesStats) annualizedVolatility(idx int) float64 {
	cnt := st.retCount[idx]
	if cnt < MinReturnObservations {
		return math.NaN()
	}
	variance := st.retM2[idx] / float64(cnt-1)
	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough loss of the cumulative
// return curve up to index idx, as a positive fraction.
func (st *seriesStats) maxDrawdown(idx int) float64 {
	return math.Abs(st.minDrawdown[idx])
}
