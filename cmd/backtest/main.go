// Command backtest is the example harness binding internal/feed,
// internal/strategy, internal/planner, and internal/backtest together:
// load a CSV bar stream, run the deterministic core over it, print the
// resulting metrics, and serve Prometheus metrics until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketsim/backtest-core/internal/backtest"
	"github.com/marketsim/backtest-core/internal/config"
	"github.com/marketsim/backtest-core/internal/feature"
	"github.com/marketsim/backtest-core/internal/feed"
	"github.com/marketsim/backtest-core/internal/market"
	"github.com/marketsim/backtest-core/internal/metrics"
	"github.com/marketsim/backtest-core/internal/planner"
	"github.com/marketsim/backtest-core/internal/strategy"
	"github.com/marketsim/backtest-core/internal/types"
)

func main() {
	var configPath, csvPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML run configuration")
	flag.StringVar(&csvPath, "csv", "", "Path to CSV bar feed (time,open,high,low,close,volume); overrides config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if csvPath != "" {
		cfg.Data.CSVPath = csvPath
	}
	if cfg.Data.CSVPath == "" {
		log.Fatalf("no CSV path given (use -csv or data.csv_path in config)")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Ops.MetricsPort), Handler: mux}
	go func() {
		log.Printf("[INFO] serving metrics on :%d/metrics", cfg.Ops.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	bars, err := feed.LoadCSV(cfg.Data.CSVPath)
	if err != nil {
		log.Fatalf("feed: %v", err)
	}
	if len(bars) < 2 {
		log.Fatalf("need at least 2 bars, have %d", len(bars))
	}

	result, err := runBacktest(cfg, bars)
	if err != nil {
		log.Fatalf("[BACKTEST] run failed: %v", err)
	}

	log.Printf("[INFO] run=%s instrument=%s bars=%d fills=%d realized_pnl=%.2f unrealized_pnl=%.2f final_cash=%.2f final_position=%.4f",
		result.RunID, result.Instrument, len(bars), len(result.ExecutionLog),
		result.Metrics.RealizedPnL, result.Metrics.UnrealizedPnL, result.Metrics.FinalCash, result.Metrics.FinalPosition)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	cancel()

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

// runBacktest wires the Market State, Feature Store, strategy (with
// optional regime filter), planner, and Backtest Engine per cfg, then
// runs the full bar stream through it.
func runBacktest(cfg *config.Config, bars []types.Bar) (backtest.RunResult, error) {
	m := market.New()

	var f *feature.Store
	var strat strategy.Strategy
	var filters []strategy.Filter
	var err error

	switch cfg.Strategy.Name {
	case "micro_model":
		rsiName, zName := "rsi", "zscore"
		f, err = feature.New(
			feature.NewRSIPipeline(rsiName, cfg.Strategy.RSIWindow),
			feature.NewZScorePipeline(zName, cfg.Strategy.ZScoreWindow),
		)
		if err != nil {
			return backtest.RunResult{}, err
		}
		model := fitMicroModel(cfg, bars)
		strat = strategy.NewMicroModelStrategy(model, rsiName, zName, cfg.Strategy.BuyThreshold, cfg.Strategy.SellThreshold)
	default:
		fastName, slowName := "fast", "slow"
		f, err = feature.New(
			feature.NewSMAPipeline(fastName, cfg.Strategy.FastWindow),
			feature.NewSMAPipeline(slowName, cfg.Strategy.SlowWindow),
		)
		if err != nil {
			return backtest.RunResult{}, err
		}
		strat = strategy.NewMACrossover(fastName, slowName)
		if cfg.Strategy.UseMAFilter {
			filters = append(filters, strategy.NewMARegimeFilter(fastName, slowName))
		}
	}

	o, err := strategy.New(strat, filters, f.Names())
	if err != nil {
		return backtest.RunResult{}, err
	}

	p := planner.FixedPercentOCO{StopLossPct: cfg.Risk.StopLossPct, TakeProfitPct: cfg.Risk.TakeProfitPct}
	engine := backtest.New(cfg.Data.ProductID, cfg.Risk.InitialCash, m, f, o, p)

	result, err := engine.Run(bars)
	if err == nil {
		metrics.RealizedPnL.Set(result.Metrics.RealizedPnL)
	}
	return result, err
}

// fitMicroModel trains the micro-model on the leading 70% of bars (or on
// all bars when that share is shorter than the RSI plus z-score windows)
// and returns a model ready to decide over the full stream.
func fitMicroModel(cfg *config.Config, bars []types.Bar) *strategy.MicroModel {
	split := int(0.7 * float64(len(bars)))
	if split < cfg.Strategy.RSIWindow+cfg.Strategy.ZScoreWindow {
		split = len(bars)
	}
	train := bars[:split]

	tm := market.New()
	tf, err := feature.New(feature.NewRSIPipeline("rsi", cfg.Strategy.RSIWindow), feature.NewZScorePipeline("zscore", cfg.Strategy.ZScoreWindow))
	if err != nil {
		log.Fatalf("training feature store: %v", err)
	}
	closes := make([]float64, 0, len(train))
	for _, b := range train {
		if err := tm.Ingest(b); err != nil {
			log.Fatalf("training ingest: %v", err)
		}
		mv, err := tm.View()
		if err != nil {
			log.Fatalf("training view: %v", err)
		}
		tf.Update(mv)
		closes = append(closes, b.Close)
	}
	tv := tf.View()

	model := strategy.NewMicroModel(cfg.Strategy.ModelSeed)
	model.Fit(closes, tv.History["rsi"], tv.History["zscore"], 0.05, 4)
	return model
}
