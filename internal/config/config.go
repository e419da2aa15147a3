// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all tunables for screening and backtesting. It is built once
// at startup and passed by value into the components that need it; nothing
// mutates it afterwards.
type Config struct {
	// Data settings
	StartDate    string `yaml:"start_date"`    // YYYY-MM-DD, earliest history to fetch
	Benchmark    string `yaml:"benchmark"`     // benchmark/regime instrument symbol
	UniverseFile string `yaml:"universe_file"` // CSV with a Symbol column

	// Lookback windows (trading observations)
	Momentum6MDays  int `yaml:"momentum_6m_days"`
	Momentum12MDays int `yaml:"momentum_12m_days"`
	MAShort         int `yaml:"ma_short"`
	MALong          int `yaml:"ma_long"`
	RegimeLookback  int `yaml:"regime_lookback"`

	// Ranking weights
	Weight6M    float64 `yaml:"weight_6m_momentum"`
	Weight12M   float64 `yaml:"weight_12m_momentum"`
	WeightTrend float64 `yaml:"weight_above_ma"`
	WeightVol   float64 `yaml:"weight_volatility"`

	// Portfolio settings
	TopN         int     `yaml:"top_n"`
	RegimeFilter bool    `yaml:"regime_filter"`
	TxCostBps    float64 `yaml:"tx_cost_bps"`

	// Execution
	Workers int `yaml:"workers"` // indicator worker pool size, 0 = NumCPU

	// Paths
	CacheDB   string `yaml:"cache_db"`
	OutputDir string `yaml:"output_dir"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		StartDate:       "2010-01-01",
		Benchmark:       "SPY",
		UniverseFile:    "stock_pool/sp500.csv",
		Momentum6MDays:  126,
		Momentum12MDays: 252,
		MAShort:         50,
		MALong:          200,
		RegimeLookback:  200,
		Weight6M:        0.40,
		Weight12M:       0.30,
		WeightTrend:     0.20,
		WeightVol:       0.10,
		TopN:            10,
		RegimeFilter:    true,
		TxCostBps:       0,
		Workers:         0,
		CacheDB:         "cache/prices.db",
		OutputDir:       "output",
		LogLevel:        "info",
	}
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment variables (ROTOR_* keys, loaded from .env if present).
func Load(configFile string) (Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from ROTOR_* environment variables.
func (c *Config) applyEnv() {
	c.StartDate = getEnv("ROTOR_START_DATE", c.StartDate)
	c.Benchmark = getEnv("ROTOR_BENCHMARK", c.Benchmark)
	c.UniverseFile = getEnv("ROTOR_UNIVERSE_FILE", c.UniverseFile)
	c.CacheDB = getEnv("ROTOR_CACHE_DB", c.CacheDB)
	c.OutputDir = getEnv("ROTOR_OUTPUT_DIR", c.OutputDir)
	c.LogLevel = getEnv("ROTOR_LOG_LEVEL", c.LogLevel)
	c.TopN = getEnvAsInt("ROTOR_TOP_N", c.TopN)
	c.Workers = getEnvAsInt("ROTOR_WORKERS", c.Workers)
	c.TxCostBps = getEnvAsFloat("ROTOR_TX_COST_BPS", c.TxCostBps)
	c.RegimeFilter = getEnvAsBool("ROTOR_REGIME_FILTER", c.RegimeFilter)
}

// Validate checks the configuration for values the engines cannot work with.
func (c Config) Validate() error {
	if c.Momentum6MDays <= 0 || c.Momentum12MDays <= 0 {
		return fmt.Errorf("momentum windows must be positive (got %d/%d)", c.Momentum6MDays, c.Momentum12MDays)
	}
	if c.Momentum6MDays > c.Momentum12MDays {
		return fmt.Errorf("short momentum window %d exceeds long window %d", c.Momentum6MDays, c.Momentum12MDays)
	}
	if c.MAShort <= 0 || c.MALong <= 0 {
		return fmt.Errorf("moving average windows must be positive (got %d/%d)", c.MAShort, c.MALong)
	}
	if c.RegimeLookback <= 0 {
		return fmt.Errorf("regime lookback must be positive (got %d)", c.RegimeLookback)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive (got %d)", c.TopN)
	}
	if c.TxCostBps < 0 {
		return fmt.Errorf("tx_cost_bps must be non-negative (got %v)", c.TxCostBps)
	}
	for _, w := range []float64{c.Weight6M, c.Weight12M, c.WeightTrend, c.WeightVol} {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("ranking weights must be non-negative")
		}
	}
	if c.Benchmark == "" {
		return fmt.Errorf("benchmark symbol is required")
	}
	return nil
}

// EnsureDirs creates the cache and output directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{filepath.Dir(c.CacheDB), c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
