package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rotor/internal/config"
	"github.com/aristath/rotor/internal/domain"
)

// dailySeries builds one observation per calendar day from start to end
// inclusive, pricing each day with f.
func dailySeries(t *testing.T, symbol string, start, end time.Time, f func(time.Time) float64) *domain.PriceSeries {
	t.Helper()
	var dates []time.Time
	var prices []float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
		prices = append(prices, f(d))
	}
	s, err := domain.NewPriceSeries(symbol, dates, prices)
	require.NoError(t, err)
	return s
}

// monthIndex numbers calendar months consecutively.
func monthIndex(d time.Time) int {
	return (d.Year()-2021)*12 + int(d.Month()) - 1
}

// monthlyGrower prices a symbol at base*(1+rate)^month, constant within each
// month, so its return between any two month-end boundaries is exactly the
// compounded monthly rate.
func monthlyGrower(base, rate float64) func(time.Time) float64 {
	return func(d time.Time) float64 {
		return base * math.Pow(1+rate, float64(monthIndex(d)))
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Momentum6MDays = 21
	cfg.Momentum12MDays = 42
	cfg.MAShort = 10
	cfg.MALong = 21
	cfg.RegimeLookback = 10
	cfg.RegimeFilter = false
	cfg.TopN = 1
	cfg.TxCostBps = 0
	cfg.Weight6M = 0.5
	cfg.Weight12M = 0.5
	cfg.WeightTrend = 0
	cfg.WeightVol = 0
	return &cfg
}

var (
	stockStart = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	benchStart = time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	simEnd     = time.Date(2021, 5, 31, 0, 0, 0, 0, time.UTC)
)

// rotationFixture is a universe where A compounds up, B compounds down and C
// stays flat. The benchmark starts a month later so every decision boundary
// already has enough stock history.
func rotationFixture(t *testing.T) (map[string]*domain.PriceSeries, []string, *domain.PriceSeries) {
	t.Helper()
	universe := map[string]*domain.PriceSeries{
		"A": dailySeries(t, "A", stockStart, simEnd, monthlyGrower(100, 0.01)),
		"B": dailySeries(t, "B", stockStart, simEnd, monthlyGrower(100, -0.01)),
		"C": dailySeries(t, "C", stockStart, simEnd, monthlyGrower(100, 0)),
	}
	bench := dailySeries(t, "SPY", benchStart, simEnd, monthlyGrower(100, 0.005))
	return universe, []string{"A", "B", "C"}, bench
}

func TestRun_SelectsStrongestEveryPeriod(t *testing.T) {
	universe, order, bench := rotationFixture(t)
	sim := NewSimulator(testConfig(), zerolog.Nop())

	result, err := sim.Run(context.Background(), universe, order, bench)
	require.NoError(t, err)

	// Benchmark spans Feb..May: four boundaries, three periods.
	require.Len(t, result.Events, 3)
	for _, e := range result.Events {
		assert.False(t, e.InCash)
		assert.Equal(t, []string{"A"}, e.Selected)
		assert.Equal(t, 1, e.NumSelected)
		// Equal to A's raw period return, untouched by costs.
		assert.InDelta(t, 0.01, e.PortfolioReturn, 1e-12)
		assert.InDelta(t, 0.005, e.BenchmarkReturn, 1e-12)
	}
}

func TestRun_TransactionCostReducesReturn(t *testing.T) {
	cfg := testConfig()
	cfg.TxCostBps = 100

	universe := map[string]*domain.PriceSeries{
		"A": dailySeries(t, "A", stockStart, simEnd, monthlyGrower(100, 0.05)),
	}
	bench := dailySeries(t, "SPY", benchStart, simEnd, monthlyGrower(100, 0.005))

	sim := NewSimulator(cfg, zerolog.Nop())
	result, err := sim.Run(context.Background(), universe, []string{"A"}, bench)
	require.NoError(t, err)

	require.NotEmpty(t, result.Events)
	for _, e := range result.Events {
		assert.InDelta(t, 0.05-0.01, e.PortfolioReturn, 1e-12)
	}
}

func TestRun_RegimeCashOverride(t *testing.T) {
	cfg := testConfig()
	cfg.RegimeFilter = true

	universe, order, _ := rotationFixture(t)
	// A benchmark falling every day sits below any trailing average.
	falling := dailySeries(t, "SPY", benchStart, simEnd, func(d time.Time) float64 {
		return 1000 - float64(d.YearDay())
	})

	sim := NewSimulator(cfg, zerolog.Nop())
	result, err := sim.Run(context.Background(), universe, order, falling)
	require.NoError(t, err)

	require.NotEmpty(t, result.Events)
	for _, e := range result.Events {
		assert.True(t, e.InCash)
		assert.Zero(t, e.PortfolioReturn)
		assert.Empty(t, e.Selected)
	}
}

func TestRun_EmptySelectionBehavesLikeCash(t *testing.T) {
	cfg := testConfig()
	cfg.TxCostBps = 100

	// One symbol with history far shorter than the momentum window.
	thin := dailySeries(t, "A", time.Date(2021, 5, 20, 0, 0, 0, 0, time.UTC), simEnd, monthlyGrower(100, 0.01))
	bench := dailySeries(t, "SPY", benchStart, simEnd, monthlyGrower(100, 0.005))

	sim := NewSimulator(cfg, zerolog.Nop())
	result, err := sim.Run(context.Background(), map[string]*domain.PriceSeries{"A": thin}, []string{"A"}, bench)
	require.NoError(t, err)

	require.NotEmpty(t, result.Events)
	for i, e := range result.Events {
		assert.False(t, e.InCash)
		assert.Zero(t, e.PortfolioReturn, "no selection means no cost either")
		assert.Empty(t, e.Selected)

		audit := result.Audits[i]
		require.Len(t, audit.Excluded, 1)
		assert.Equal(t, "A", audit.Excluded[0].Symbol)
		assert.Equal(t, "insufficient history", audit.Excluded[0].Reason)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	universe, order, bench := rotationFixture(t)
	sim := NewSimulator(testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, universe, order, bench)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_TooShortBenchmark(t *testing.T) {
	universe, order, _ := rotationFixture(t)
	short := dailySeries(t, "SPY", benchStart, benchStart.AddDate(0, 0, 5), monthlyGrower(100, 0))

	sim := NewSimulator(testConfig(), zerolog.Nop())
	_, err := sim.Run(context.Background(), universe, order, short)
	assert.ErrorIs(t, err, ErrTooFewRebalanceDates)
}
