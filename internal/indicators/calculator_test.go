package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/rotor/internal/domain"
)

var baseDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// mkSeries builds a series with one observation per consecutive day.
func mkSeries(t *testing.T, symbol string, prices []float64) *domain.PriceSeries {
	t.Helper()
	dates := make([]time.Time, len(prices))
	for i := range prices {
		dates[i] = baseDate.AddDate(0, 0, i)
	}
	s, err := domain.NewPriceSeries(symbol, dates, prices)
	require.NoError(t, err)
	return s
}

// flatPrices returns n copies of price.
func flatPrices(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func defaultCalc() *Calculator {
	return NewCalculator(126, 252, 50, 200, zerolog.Nop())
}

func TestCompute_InsufficientHistory(t *testing.T) {
	calc := defaultCalc()
	s := mkSeries(t, "AAA", flatPrices(251, 100))

	rec := calc.Compute(s, s.LastDate())

	assert.True(t, rec.Insufficient)
	reason, bad := rec.DisqualifyReason()
	assert.True(t, bad)
	assert.Equal(t, "insufficient history", reason)
}

func TestCompute_MomentumValues(t *testing.T) {
	calc := defaultCalc()

	// Linearly rising prices: 100, 101, ..., so the reference points are
	// exactly computable.
	prices := make([]float64, 252)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	s := mkSeries(t, "AAA", prices)

	rec := calc.Compute(s, s.LastDate())
	require.False(t, rec.Insufficient)

	last := prices[251]
	past6 := prices[252-126]
	past12 := prices[0]
	assert.InDelta(t, (last-past6)/past6, rec.Momentum6M, 1e-12)
	assert.InDelta(t, (last-past12)/past12, rec.Momentum12M, 1e-12)
	assert.Equal(t, last, rec.CurrentPrice)
	assert.True(t, rec.AboveLongMA, "rising series ends above its long MA")
}

func TestCompute_MovingAverages(t *testing.T) {
	calc := defaultCalc()
	prices := make([]float64, 300)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	s := mkSeries(t, "AAA", prices)

	rec := calc.Compute(s, s.LastDate())
	require.False(t, rec.Insufficient)

	// Trailing mean of consecutive integers is the midpoint.
	assert.InDelta(t, (float64(300)+float64(251))/2, rec.MAShort, 1e-9)
	assert.InDelta(t, (float64(300)+float64(101))/2, rec.MALong, 1e-9)
}

func TestCompute_NoLookAhead(t *testing.T) {
	calc := defaultCalc()

	shared := make([]float64, 300)
	for i := range shared {
		shared[i] = 100 + math.Sin(float64(i)/7)*5 + float64(i)*0.1
	}

	// Two series that agree on the first 300 observations and then diverge
	// violently. Records computed as of the shared boundary must match.
	tailA := append(append([]float64{}, shared...), 500, 600, 700)
	tailB := append(append([]float64{}, shared...), 1, 2, 3)
	sa := mkSeries(t, "AAA", tailA)
	sb := mkSeries(t, "AAA", tailB)

	asof := baseDate.AddDate(0, 0, 299)
	recA := calc.Compute(sa, asof)
	recB := calc.Compute(sb, asof)

	assert.Equal(t, recA, recB)
}

func TestCompute_VolatilityMatchesSampleStd(t *testing.T) {
	calc := defaultCalc()

	prices := make([]float64, 260)
	prices[0] = 100
	for i := 1; i < len(prices); i++ {
		// Deterministic wobble around a drift.
		prices[i] = prices[i-1] * (1 + 0.0005 + 0.01*math.Sin(float64(i)))
	}
	s := mkSeries(t, "AAA", prices)

	rec := calc.Compute(s, s.LastDate())
	require.False(t, rec.Insufficient)

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	want := stat.StdDev(returns, nil) * math.Sqrt(252)

	assert.InDelta(t, want, rec.Volatility, 1e-9)
}

func TestCompute_VolatilityUndefinedOnThinHistory(t *testing.T) {
	// Narrow windows so the record is Valid while too few returns exist for
	// volatility.
	calc := NewCalculator(5, 10, 3, 5, zerolog.Nop())
	prices := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	s := mkSeries(t, "AAA", prices)

	rec := calc.Compute(s, s.LastDate())
	require.False(t, rec.Insufficient)
	assert.True(t, math.IsNaN(rec.Volatility))

	reason, bad := rec.DisqualifyReason()
	assert.True(t, bad)
	assert.Equal(t, "undefined volatility", reason)
}

func TestCompute_ZeroReferencePriceIsInsufficient(t *testing.T) {
	calc := NewCalculator(2, 4, 2, 3, zerolog.Nop())
	prices := []float64{0, 1, 2, 3}
	s := mkSeries(t, "AAA", prices)

	rec := calc.Compute(s, s.LastDate())
	assert.True(t, rec.Insufficient)
}

func TestCompute_MaxDrawdown(t *testing.T) {
	calc := NewCalculator(2, 4, 2, 3, zerolog.Nop())

	// Monotonically rising: no drawdown.
	up := mkSeries(t, "UP", []float64{100, 110, 120, 130, 140})
	rec := calc.Compute(up, up.LastDate())
	require.False(t, rec.Insufficient)
	assert.InDelta(t, 0.0, rec.MaxDrawdown, 1e-12)

	// Halves then fully recovers: drawdown is 0.5.
	dd := mkSeries(t, "DD", []float64{100, 100, 50, 100, 100})
	rec = calc.Compute(dd, dd.LastDate())
	require.False(t, rec.Insufficient)
	assert.InDelta(t, 0.5, rec.MaxDrawdown, 1e-12)
}

func TestCompute_AsofBetweenObservations(t *testing.T) {
	calc := NewCalculator(2, 3, 2, 3, zerolog.Nop())
	prices := []float64{10, 20, 30, 40}
	s := mkSeries(t, "AAA", prices)

	// Asof after the third observation but before the fourth: only the
	// first three observations count.
	asof := baseDate.AddDate(0, 0, 2)
	rec := calc.Compute(s, asof)
	require.False(t, rec.Insufficient)
	assert.Equal(t, 30.0, rec.CurrentPrice)
	assert.InDelta(t, (30.0-10.0)/10.0, rec.Momentum12M, 1e-12)
}

func TestRelativeStrength(t *testing.T) {
	calc := defaultCalc()

	stock := mkSeries(t, "AAA", []float64{100, 110, 121})
	bench := mkSeries(t, "SPY", []float64{100, 105, 110.25})

	rs := calc.RelativeStrength(stock, bench, 3)
	assert.InDelta(t, 0.21-0.1025, rs, 1e-9)

	// Too few common observations.
	assert.True(t, math.IsNaN(calc.RelativeStrength(stock, bench, 4)))
	assert.True(t, math.IsNaN(calc.RelativeStrength(nil, bench, 3)))
}
