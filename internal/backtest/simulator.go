package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/config"
	"github.com/aristath/rotor/internal/domain"
	"github.com/aristath/rotor/internal/indicators"
	"github.com/aristath/rotor/internal/market_regime"
	"github.com/aristath/rotor/internal/ranking"
)

// Simulator walks the rebalance schedule period by period. Periods run in
// date order; within one period indicator evaluation fans out across symbols
// to a bounded worker pool, and ranking waits for all of them.
type Simulator struct {
	calc    *indicators.Calculator
	ranker  *ranking.Ranker
	regime  *market_regime.Filter
	topN    int
	useGate bool
	txCost  float64
	workers int
	log     zerolog.Logger
}

// NewSimulator builds a simulator from an immutable configuration value.
func NewSimulator(cfg *config.Config, log zerolog.Logger) *Simulator {
	l := log.With().Str("component", "simulator").Logger()

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	weights := ranking.Weights{
		Momentum6M:  cfg.Weight6M,
		Momentum12M: cfg.Weight12M,
		AboveLongMA: cfg.WeightTrend,
		Volatility:  cfg.WeightVol,
	}

	return &Simulator{
		calc:    indicators.NewCalculator(cfg.Momentum6MDays, cfg.Momentum12MDays, cfg.MAShort, cfg.MALong, log),
		ranker:  ranking.NewRanker(weights, log),
		regime:  market_regime.NewFilter(cfg.RegimeLookback, log),
		topN:    cfg.TopN,
		useGate: cfg.RegimeFilter,
		txCost:  cfg.TxCostBps / 10000.0,
		workers: workers,
		log:     l,
	}
}

// Run simulates every period of the schedule derived from the benchmark.
// Symbols iterate in the order given, which fixes ranking tie-breaks. The
// context is checked between periods so long backtests can be cancelled.
func (s *Simulator) Run(ctx context.Context, universe map[string]*domain.PriceSeries, order []string, benchmark *domain.PriceSeries) (*Result, error) {
	dates, err := MonthEnds(benchmark)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("symbols", len(order)).
		Int("periods", len(dates)-1).
		Time("first", dates[0]).
		Time("last", dates[len(dates)-1]).
		Msg("Starting simulation")

	result := &Result{
		Events: make([]RebalanceEvent, 0, len(dates)-1),
		Audits: make([]PeriodAudit, 0, len(dates)-1),
	}

	for i := 0; i+1 < len(dates); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event, audit := s.simulatePeriod(universe, order, benchmark, dates[i], dates[i+1])
		result.Events = append(result.Events, event)
		result.Audits = append(result.Audits, audit)
	}

	return result, nil
}

// simulatePeriod makes the decision at the start boundary and realizes the
// return at the end boundary.
func (s *Simulator) simulatePeriod(universe map[string]*domain.PriceSeries, order []string, benchmark *domain.PriceSeries, start, end time.Time) (RebalanceEvent, PeriodAudit) {
	event := RebalanceEvent{
		Date:            end,
		BenchmarkReturn: periodReturn(benchmark, start, end),
	}
	audit := PeriodAudit{Date: start}

	if s.useGate && s.regime.State(benchmark, start) == market_regime.StateCash {
		event.InCash = true
		s.log.Debug().Time("date", start).Msg("Regime filter active, holding cash")
		return event, audit
	}

	records := s.computeRecords(universe, order, start)

	for _, rec := range records {
		if reason, bad := rec.DisqualifyReason(); bad {
			audit.Excluded = append(audit.Excluded, Exclusion{Symbol: rec.Symbol, Reason: reason})
		}
	}

	selected := ranking.TopN(s.ranker.Rank(records), s.topN)
	if len(selected) == 0 {
		// Nothing eligible: identical to a cash period, no transaction cost.
		return event, audit
	}

	var sum float64
	var counted int
	for _, entry := range selected {
		series := universe[entry.Symbol]
		r := periodReturn(series, start, end)
		sum += r
		counted++
		event.Selected = append(event.Selected, entry.Symbol)
	}
	event.NumSelected = len(event.Selected)

	if counted > 0 {
		// Flat cost once per invested rebalance, independent of turnover.
		event.PortfolioReturn = sum/float64(counted) - s.txCost
	}

	return event, audit
}

// computeRecords evaluates indicators for every symbol as of one date.
// Each worker writes only its own slice index, so no locking is needed; the
// wait acts as the barrier before ranking.
func (s *Simulator) computeRecords(universe map[string]*domain.PriceSeries, order []string, asof time.Time) []indicators.Record {
	records := make([]indicators.Record, len(order))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)
	for i, symbol := range order {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			series, ok := universe[symbol]
			if !ok {
				records[i] = indicators.NewInsufficient(symbol)
				return
			}
			records[i] = s.calc.Compute(series, asof)
		}(i, symbol)
	}
	wg.Wait()

	return records
}

// periodReturn is the fractional return between the most recent observations
// at or before each boundary. Zero when either boundary has no usable price.
func periodReturn(series *domain.PriceSeries, start, end time.Time) float64 {
	if series == nil {
		return 0
	}
	p0, ok0 := series.PriceOnOrBefore(start)
	p1, ok1 := series.PriceOnOrBefore(end)
	if !ok0 || !ok1 || p0 == 0 {
		return 0
	}
	return (p1 - p0) / p0
}
