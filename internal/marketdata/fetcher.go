package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rotor/internal/domain"
)

// maxStaleDays is how old the newest cached bar may be before an incremental
// refresh is triggered. Two days tolerates weekends without refetching every
// run.
const maxStaleDays = 2

// ChartClient downloads daily bars. Satisfied by YahooClient and by test
// fakes.
type ChartClient interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// Fetcher materializes adjusted price series, serving from the cache and
// topping it up incrementally from the chart client when stale.
type Fetcher struct {
	client  ChartClient
	cache   *PriceCache
	start   time.Time
	refresh bool
	workers int
	now     func() time.Time
	log     zerolog.Logger
}

// NewFetcher creates a fetcher. Start bounds the earliest history requested.
// Refresh forces a full refetch, bypassing the cache contents.
func NewFetcher(client ChartClient, cache *PriceCache, start time.Time, refresh bool, workers int, log zerolog.Logger) *Fetcher {
	if workers <= 0 {
		workers = 4
	}
	return &Fetcher{
		client:  client,
		cache:   cache,
		start:   start,
		refresh: refresh,
		workers: workers,
		now:     time.Now,
		log:     log.With().Str("component", "fetcher").Logger(),
	}
}

// Series returns the adjusted price series for one symbol, updating the cache
// as a side effect.
func (f *Fetcher) Series(ctx context.Context, symbol string) (*domain.PriceSeries, error) {
	if f.refresh {
		if err := f.cache.Clear(symbol); err != nil {
			return nil, err
		}
	}

	lastDate, cached, err := f.cache.LastDate(symbol)
	if err != nil {
		return nil, err
	}

	today := f.now().UTC().Truncate(24 * time.Hour)

	switch {
	case !cached:
		bars, err := f.client.History(ctx, symbol, f.start, today)
		if err != nil {
			return nil, fmt.Errorf("failed to download history for %s: %w", symbol, err)
		}
		if err := f.cache.SaveBars(symbol, bars); err != nil {
			return nil, err
		}

	case today.Sub(lastDate) > maxStaleDays*24*time.Hour:
		// Top up from the day after the newest cached bar.
		bars, err := f.client.History(ctx, symbol, lastDate.AddDate(0, 0, 1), today)
		if err != nil {
			return nil, fmt.Errorf("failed to update history for %s: %w", symbol, err)
		}
		if err := f.cache.SaveBars(symbol, bars); err != nil {
			return nil, err
		}
		f.log.Debug().Str("symbol", symbol).Int("new_bars", len(bars)).Msg("Cache topped up")
	}

	bars, err := f.cache.Bars(symbol)
	if err != nil {
		return nil, err
	}
	return seriesFromBars(symbol, bars)
}

// FetchAll materializes series for many symbols concurrently. Symbols that
// fail are logged and skipped; the returned order preserves the input order
// of the symbols that succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string) (map[string]*domain.PriceSeries, []string, error) {
	type outcome struct {
		series *domain.PriceSeries
		err    error
	}
	results := make([]outcome, len(symbols))

	var wg sync.WaitGroup
	sem := make(chan struct{}, f.workers)
	for i, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			s, err := f.Series(ctx, symbol)
			results[i] = outcome{series: s, err: err}
		}(i, symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	universe := make(map[string]*domain.PriceSeries, len(symbols))
	var order []string
	for i, symbol := range symbols {
		if results[i].err != nil {
			f.log.Warn().Str("symbol", symbol).Err(results[i].err).Msg("Skipping symbol")
			continue
		}
		universe[symbol] = results[i].series
		order = append(order, symbol)
	}

	if len(order) == 0 {
		return nil, nil, fmt.Errorf("no usable price history for any of %d symbols", len(symbols))
	}
	return universe, order, nil
}

// Provider binds a fetcher to a fixed symbol list and benchmark symbol so
// the engines can consume it through the domain provider interfaces.
type Provider struct {
	fetcher   *Fetcher
	symbols   []string
	benchmark string
}

var (
	_ domain.UniverseProvider  = (*Provider)(nil)
	_ domain.BenchmarkProvider = (*Provider)(nil)
)

// NewProvider creates a provider over the given universe and benchmark.
func NewProvider(fetcher *Fetcher, symbols []string, benchmark string) *Provider {
	return &Provider{fetcher: fetcher, symbols: symbols, benchmark: benchmark}
}

// Universe materializes the candidate universe in input order.
func (p *Provider) Universe(ctx context.Context) (map[string]*domain.PriceSeries, []string, error) {
	return p.fetcher.FetchAll(ctx, p.symbols)
}

// Benchmark materializes the benchmark series.
func (p *Provider) Benchmark(ctx context.Context) (*domain.PriceSeries, error) {
	s, err := p.fetcher.Series(ctx, p.benchmark)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark %s: %w", p.benchmark, err)
	}
	return s, nil
}

// seriesFromBars builds a series from the adjusted closes, dropping bars with
// non-positive adjusted prices.
func seriesFromBars(symbol string, bars []Bar) (*domain.PriceSeries, error) {
	dates := make([]time.Time, 0, len(bars))
	prices := make([]float64, 0, len(bars))
	for _, b := range bars {
		price := b.AdjClose
		if price <= 0 {
			price = b.Close
		}
		if price <= 0 {
			continue
		}
		dates = append(dates, b.Date)
		prices = append(prices, price)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no usable bars for %s", symbol)
	}
	return domain.NewPriceSeries(symbol, dates, prices)
}
