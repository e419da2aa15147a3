// Command rotor screens and backtests a monthly stock-rotation strategy.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/rotor/internal/config"
	"github.com/aristath/rotor/internal/database"
	"github.com/aristath/rotor/internal/domain"
	"github.com/aristath/rotor/internal/marketdata"
	"github.com/aristath/rotor/internal/universe"
	"github.com/aristath/rotor/pkg/logger"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagUniverse  string
	flagBenchmark string
	flagStartDate string
	flagTopN      int
	flagTxCostBps float64
	flagRefresh   bool
)

func main() {
	root := &cobra.Command{
		Use:           "rotor",
		Short:         "Monthly stock-rotation screener and backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&flagUniverse, "universe", "", "path to universe CSV")
	root.PersistentFlags().StringVar(&flagBenchmark, "benchmark", "", "benchmark symbol")
	root.PersistentFlags().StringVar(&flagStartDate, "start-date", "", "earliest history date (YYYY-MM-DD)")
	root.PersistentFlags().BoolVar(&flagRefresh, "refresh", false, "refetch all price history, bypassing the cache")

	root.AddCommand(newBacktestCmd(), newScreenCmd(), newRunsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the collaborators shared by all commands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	cacheDB  *database.DB
	provider *marketdata.Provider
	symbols  []string
}

// loadConfig builds the effective configuration and logger. Flags beat both
// the config file and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}

	if flagUniverse != "" {
		cfg.UniverseFile = flagUniverse
	}
	if flagBenchmark != "" {
		cfg.Benchmark = flagBenchmark
	}
	if flagStartDate != "" {
		cfg.StartDate = flagStartDate
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("top") {
		cfg.TopN = flagTopN
	}
	if cmd.Flags().Changed("tx-cost-bps") {
		cfg.TxCostBps = flagTxCostBps
	}
	if err := cfg.Validate(); err != nil {
		return cfg, zerolog.Nop(), err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return cfg, zerolog.Nop(), err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

// newApp loads configuration, applies flag overrides and wires the data
// layer. Callers must Close it.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.DateOnly, cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", cfg.StartDate, err)
	}

	symbols, err := universe.Load(cfg.UniverseFile)
	if err != nil {
		return nil, err
	}

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDB,
		Profile: database.ProfileCache,
		Name:    "prices",
	})
	if err != nil {
		return nil, err
	}

	cache, err := marketdata.NewPriceCache(cacheDB)
	if err != nil {
		_ = cacheDB.Close()
		return nil, err
	}

	client := marketdata.NewYahooClient(&http.Client{Timeout: 30 * time.Second}, log)
	fetcher := marketdata.NewFetcher(client, cache, start, flagRefresh, 4, log)

	return &app{
		cfg:      cfg,
		log:      log,
		cacheDB:  cacheDB,
		provider: marketdata.NewProvider(fetcher, symbols, cfg.Benchmark),
		symbols:  symbols,
	}, nil
}

func (a *app) Close() {
	_ = a.cacheDB.Close()
}

// loadData materializes the universe and benchmark series.
func (a *app) loadData(ctx context.Context) (map[string]*domain.PriceSeries, []string, *domain.PriceSeries, error) {
	a.log.Info().
		Int("symbols", len(a.symbols)).
		Str("benchmark", a.cfg.Benchmark).
		Msg("Loading price data")

	univ, order, err := a.provider.Universe(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	benchmark, err := a.provider.Benchmark(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return univ, order, benchmark, nil
}

// openRunStore opens the run history database under the output directory.
func openRunStore(cfg config.Config) (*database.DB, error) {
	return database.New(database.Config{
		Path:    filepath.Join(cfg.OutputDir, "runs.db"),
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
}
