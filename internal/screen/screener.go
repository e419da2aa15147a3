// Package screen ranks the universe at the latest available date, for
// inspecting what the strategy would hold today rather than simulating
// history.
package screen

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/rotor/internal/config"
	"github.com/aristath/rotor/internal/domain"
	"github.com/aristath/rotor/internal/indicators"
	"github.com/aristath/rotor/internal/market_regime"
	"github.com/aristath/rotor/internal/ranking"
)

// Entry is one screened symbol with the indicator detail behind its rank.
type Entry struct {
	Rank             int     `json:"rank"`
	Symbol           string  `json:"symbol"`
	Score            float64 `json:"score"`
	Momentum6M       float64 `json:"momentum_6m"`
	Momentum12M      float64 `json:"momentum_12m"`
	Volatility       float64 `json:"volatility"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	AboveLongMA      bool    `json:"above_long_ma"`
	CurrentPrice     float64 `json:"current_price"`
	RelativeStrength float64 `json:"relative_strength"`
}

// Result is a full screen at one date.
type Result struct {
	AsOf     time.Time           `json:"as_of"`
	Regime   market_regime.State `json:"regime"`
	Entries  []Entry             `json:"entries"`
	Excluded []string            `json:"excluded,omitempty"`
}

// TrendFiltered returns the entries trading above their long moving average,
// in rank order.
func (r *Result) TrendFiltered() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.AboveLongMA {
			out = append(out, e)
		}
	}
	return out
}

// MomentumLeaders returns the top n entries by raw 6-month momentum.
func (r *Result) MomentumLeaders(n int) []Entry {
	leaders := make([]Entry, len(r.Entries))
	copy(leaders, r.Entries)
	sort.SliceStable(leaders, func(i, j int) bool {
		return leaders[i].Momentum6M > leaders[j].Momentum6M
	})
	if n < len(leaders) {
		leaders = leaders[:n]
	}
	return leaders
}

// Stats are aggregate figures over the ranked entries.
type Stats struct {
	AvgMomentum6M  float64 `json:"avg_momentum_6m"`
	AvgMomentum12M float64 `json:"avg_momentum_12m"`
	AvgVolatility  float64 `json:"avg_volatility"`
	PctAboveLongMA float64 `json:"pct_above_long_ma"`
	TopScore       float64 `json:"top_score"`
	MedianScore    float64 `json:"median_score"`
}

// Stats summarizes the ranked entries. Zero value on an empty screen.
func (r *Result) Stats() Stats {
	n := len(r.Entries)
	if n == 0 {
		return Stats{}
	}

	mom6 := make([]float64, n)
	mom12 := make([]float64, n)
	vol := make([]float64, n)
	scores := make([]float64, n)
	above := 0
	for i, e := range r.Entries {
		mom6[i] = e.Momentum6M
		mom12[i] = e.Momentum12M
		vol[i] = e.Volatility
		scores[i] = e.Score
		if e.AboveLongMA {
			above++
		}
	}
	sort.Float64s(scores)

	return Stats{
		AvgMomentum6M:  stat.Mean(mom6, nil),
		AvgMomentum12M: stat.Mean(mom12, nil),
		AvgVolatility:  stat.Mean(vol, nil),
		PctAboveLongMA: float64(above) / float64(n),
		TopScore:       r.Entries[0].Score,
		MedianScore:    stat.Quantile(0.5, stat.Empirical, scores, nil),
	}
}

// Position is one holding of the equal-weight snapshot.
type Position struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Snapshot returns the equal-weight portfolio the strategy would hold now:
// the top n entries, each at weight 1/n (1/len when fewer are available).
func (r *Result) Snapshot(n int) []Position {
	if n > len(r.Entries) {
		n = len(r.Entries)
	}
	if n <= 0 {
		return nil
	}
	w := 1.0 / float64(n)
	out := make([]Position, n)
	for i := 0; i < n; i++ {
		out[i] = Position{Symbol: r.Entries[i].Symbol, Weight: w}
	}
	return out
}

// Screener evaluates the ranking pipeline at the benchmark's latest date.
type Screener struct {
	calc     *indicators.Calculator
	ranker   *ranking.Ranker
	regime   *market_regime.Filter
	rsWindow int
	log      zerolog.Logger
}

// NewScreener builds a screener from the shared configuration.
func NewScreener(cfg *config.Config, log zerolog.Logger) *Screener {
	l := log.With().Str("component", "screener").Logger()
	weights := ranking.Weights{
		Momentum6M:  cfg.Weight6M,
		Momentum12M: cfg.Weight12M,
		AboveLongMA: cfg.WeightTrend,
		Volatility:  cfg.WeightVol,
	}
	return &Screener{
		calc:     indicators.NewCalculator(cfg.Momentum6MDays, cfg.Momentum12MDays, cfg.MAShort, cfg.MALong, log),
		ranker:   ranking.NewRanker(weights, log),
		regime:   market_regime.NewFilter(cfg.RegimeLookback, log),
		rsWindow: cfg.Momentum6MDays,
		log:      l,
	}
}

// Run screens the universe as of the benchmark's latest observation.
func (s *Screener) Run(ctx context.Context, universe map[string]*domain.PriceSeries, order []string, benchmark *domain.PriceSeries) (*Result, error) {
	if benchmark == nil || benchmark.Len() == 0 {
		return nil, fmt.Errorf("benchmark series is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asof := benchmark.LastDate()
	result := &Result{
		AsOf:   asof,
		Regime: s.regime.State(benchmark, asof),
	}

	records := make([]indicators.Record, 0, len(order))
	for _, symbol := range order {
		series, ok := universe[symbol]
		if !ok {
			result.Excluded = append(result.Excluded, symbol)
			continue
		}
		rec := s.calc.Compute(series, asof)
		if _, bad := rec.DisqualifyReason(); bad {
			result.Excluded = append(result.Excluded, symbol)
			continue
		}
		records = append(records, rec)
	}

	for _, entry := range s.ranker.Rank(records) {
		rs := math.NaN()
		if series, ok := universe[entry.Symbol]; ok {
			rs = s.calc.RelativeStrength(series, benchmark, s.rsWindow)
		}
		result.Entries = append(result.Entries, Entry{
			Rank:             entry.Rank,
			Symbol:           entry.Symbol,
			Score:            entry.Score,
			Momentum6M:       entry.Record.Momentum6M,
			Momentum12M:      entry.Record.Momentum12M,
			Volatility:       entry.Record.Volatility,
			MaxDrawdown:      entry.Record.MaxDrawdown,
			AboveLongMA:      entry.Record.AboveLongMA,
			CurrentPrice:     entry.Record.CurrentPrice,
			RelativeStrength: rs,
		})
	}

	s.log.Info().
		Time("asof", asof).
		Int("ranked", len(result.Entries)).
		Int("excluded", len(result.Excluded)).
		Str("regime", string(result.Regime)).
		Msg("Screen complete")

	return result, nil
}
