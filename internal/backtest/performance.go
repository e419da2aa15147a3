package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PeriodsPerYear is the annualization base for monthly period returns.
const PeriodsPerYear = 12

// Summary aggregates one event timeline into performance statistics. It is a
// pure function of the timeline and can be recomputed at any time.
type Summary struct {
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	NPeriods             int     `json:"n_periods"`
	Years                float64 `json:"years"`
	TotalReturn          float64 `json:"total_return"`
	CAGR                 float64 `json:"cagr"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	WinRate              float64 `json:"win_rate"`
	BestPeriod           float64 `json:"best_period"`
	WorstPeriod          float64 `json:"worst_period"`
	PctPeriodsInCash     float64 `json:"pct_periods_in_cash"`
	BenchmarkTotalReturn float64 `json:"benchmark_total_return"`
	BenchmarkCAGR        float64 `json:"benchmark_cagr"`
	Outperformance       float64 `json:"outperformance"`
}

// ComputeSummary reduces the event timeline to a Summary. An empty timeline
// yields the zero Summary.
func ComputeSummary(events []RebalanceEvent) Summary {
	if len(events) == 0 {
		return Summary{}
	}

	n := len(events)
	returns := make([]float64, n)
	benchReturns := make([]float64, n)
	cashPeriods := 0
	wins := 0
	best := math.Inf(-1)
	worst := math.Inf(1)

	for i, e := range events {
		returns[i] = e.PortfolioReturn
		benchReturns[i] = e.BenchmarkReturn
		if e.InCash {
			cashPeriods++
		}
		if e.PortfolioReturn > 0 {
			wins++
		}
		if e.PortfolioReturn > best {
			best = e.PortfolioReturn
		}
		if e.PortfolioReturn < worst {
			worst = e.PortfolioReturn
		}
	}

	totalReturn, maxDD := curveStats(returns)
	benchTotal, _ := curveStats(benchReturns)

	years := float64(n) / PeriodsPerYear

	vol := 0.0
	if n >= 2 {
		vol = stat.StdDev(returns, nil) * math.Sqrt(PeriodsPerYear)
	}

	sharpe := 0.0
	if vol > 0 && !math.IsNaN(vol) {
		sharpe = stat.Mean(returns, nil) * PeriodsPerYear / vol
	}

	return Summary{
		StartDate:            events[0].Date.Format(time.DateOnly),
		EndDate:              events[n-1].Date.Format(time.DateOnly),
		NPeriods:             n,
		Years:                years,
		TotalReturn:          totalReturn,
		CAGR:                 cagr(totalReturn, years),
		AnnualizedVolatility: vol,
		SharpeRatio:          sharpe,
		MaxDrawdown:          maxDD,
		WinRate:              float64(wins) / float64(n),
		BestPeriod:           best,
		WorstPeriod:          worst,
		PctPeriodsInCash:     float64(cashPeriods) / float64(n),
		BenchmarkTotalReturn: benchTotal,
		BenchmarkCAGR:        cagr(benchTotal, years),
		Outperformance:       totalReturn - benchTotal,
	}
}

// EquityCurve returns the cumulative growth of 1 unit through the portfolio
// and benchmark return streams, one value per event.
func EquityCurve(events []RebalanceEvent) (portfolio, benchmark []float64) {
	portfolio = make([]float64, len(events))
	benchmark = make([]float64, len(events))
	p, b := 1.0, 1.0
	for i, e := range events {
		p *= 1 + e.PortfolioReturn
		b *= 1 + e.BenchmarkReturn
		portfolio[i] = p
		benchmark[i] = b
	}
	return portfolio, benchmark
}

// curveStats compounds the return stream and returns the total return along
// with the largest peak-to-trough loss as a positive fraction.
func curveStats(returns []float64) (totalReturn, maxDrawdown float64) {
	cum := 1.0
	runMax := 1.0
	minDD := 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > runMax {
			runMax = cum
		}
		if dd := cum/runMax - 1; dd < minDD {
			minDD = dd
		}
	}
	return cum - 1, math.Abs(minDD)
}

func cagr(totalReturn, years float64) float64 {
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}
