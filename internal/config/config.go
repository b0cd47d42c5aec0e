// Package config loads the run configuration for the cmd/backtest
// harness. None of this is read by the core engine packages — strategy
// knobs, CSV path, and the metrics port are all outer-layer concerns;
// the engine itself never reads the environment or a config file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the example harness needs to run a backtest.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Ops      OpsConfig      `yaml:"ops"`
}

// DataConfig points at the CSV bar feed.
type DataConfig struct {
	CSVPath   string `yaml:"csv_path"`
	ProductID string `yaml:"product_id"`
}

// StrategyConfig selects and tunes a built-in strategy.
type StrategyConfig struct {
	Name          string  `yaml:"name"` // "ma_crossover" | "micro_model"
	FastWindow    int     `yaml:"fast_window"`
	SlowWindow    int     `yaml:"slow_window"`
	RSIWindow     int     `yaml:"rsi_window"`
	ZScoreWindow  int     `yaml:"zscore_window"`
	BuyThreshold  float64 `yaml:"buy_threshold"`
	SellThreshold float64 `yaml:"sell_threshold"`
	UseMAFilter   bool    `yaml:"use_ma_filter"`
	ModelSeed     int64   `yaml:"model_seed"`
}

// RiskConfig feeds the execution planner's OCO bracket.
type RiskConfig struct {
	InitialCash   float64 `yaml:"initial_cash"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// OpsConfig controls the example harness's own serving surface.
type OpsConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// Load reads a YAML file at path (if present), overlays `.env`/process
// env, and fills in defaults for anything still unset. A missing YAML
// file is not fatal — the harness can run entirely off defaults and
// env overrides, tuned without exports, rather than requiring a config
// file to exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(c *Config) {
	if v := getEnv("CSV_PATH", ""); v != "" {
		c.Data.CSVPath = v
	}
	if v := getEnv("PRODUCT_ID", ""); v != "" {
		c.Data.ProductID = v
	}
	if v := getEnv("STRATEGY", ""); v != "" {
		c.Strategy.Name = v
	}
	if v, ok := getEnvIntOK("FAST_WINDOW"); ok {
		c.Strategy.FastWindow = v
	}
	if v, ok := getEnvIntOK("SLOW_WINDOW"); ok {
		c.Strategy.SlowWindow = v
	}
	if v, ok := getEnvIntOK("RSI_WINDOW"); ok {
		c.Strategy.RSIWindow = v
	}
	if v, ok := getEnvIntOK("ZSCORE_WINDOW"); ok {
		c.Strategy.ZScoreWindow = v
	}
	if v, ok := getEnvFloatOK("BUY_THRESHOLD"); ok {
		c.Strategy.BuyThreshold = v
	}
	if v, ok := getEnvFloatOK("SELL_THRESHOLD"); ok {
		c.Strategy.SellThreshold = v
	}
	if v, ok := getEnvBoolOK("USE_MA_FILTER"); ok {
		c.Strategy.UseMAFilter = v
	}
	if v, ok := getEnvIntOK("MODEL_SEED"); ok {
		c.Strategy.ModelSeed = int64(v)
	}
	if v, ok := getEnvFloatOK("INITIAL_CASH"); ok {
		c.Risk.InitialCash = v
	}
	if v, ok := getEnvFloatOK("STOP_LOSS_PCT"); ok {
		c.Risk.StopLossPct = v
	}
	if v, ok := getEnvFloatOK("TAKE_PROFIT_PCT"); ok {
		c.Risk.TakeProfitPct = v
	}
	if v, ok := getEnvIntOK("METRICS_PORT"); ok {
		c.Ops.MetricsPort = v
	}
}

func setDefaults(c *Config) {
	if c.Data.ProductID == "" {
		c.Data.ProductID = "BTC-USD"
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "ma_crossover"
	}
	if c.Strategy.FastWindow <= 0 {
		c.Strategy.FastWindow = 10
	}
	if c.Strategy.SlowWindow <= 0 {
		c.Strategy.SlowWindow = 30
	}
	if c.Strategy.RSIWindow <= 0 {
		c.Strategy.RSIWindow = 14
	}
	if c.Strategy.ZScoreWindow <= 0 {
		c.Strategy.ZScoreWindow = 20
	}
	if c.Strategy.BuyThreshold <= 0 {
		c.Strategy.BuyThreshold = 0.55
	}
	if c.Strategy.SellThreshold <= 0 {
		c.Strategy.SellThreshold = 0.45
	}
	if c.Risk.InitialCash <= 0 {
		c.Risk.InitialCash = 1000.0
	}
	if c.Risk.StopLossPct <= 0 {
		c.Risk.StopLossPct = 0.004
	}
	if c.Risk.TakeProfitPct <= 0 {
		c.Risk.TakeProfitPct = 0.008
	}
	if c.Ops.MetricsPort <= 0 {
		c.Ops.MetricsPort = 8080
	}
}
