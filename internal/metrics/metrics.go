// Package metrics exposes the Prometheus counters/gauges the core
// updates as it runs: steps processed, fills by type and side,
// rejected transitions, equity, and FIFO queue depth.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// StepsTotal counts steps processed by the Backtest Engine.
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_steps_total",
			Help: "Steps processed by the backtest engine.",
		},
	)

	// FillsTotal counts fills produced by the Portfolio, split by
	// operation type and side.
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_fills_total",
			Help: "Fills produced, split by operation type and side.",
		},
		[]string{"op_type", "side"},
	)

	// TransitionsRejectedTotal counts steps aborted by a transition or
	// FIFO resolver error, split by error kind.
	TransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_transitions_rejected_total",
			Help: "Transitions rejected, split by error kind.",
		},
		[]string{"kind"},
	)

	// EquityUSD is the current cash + unrealized P&L mark.
	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_equity_usd",
			Help: "Current cash plus unrealized P&L.",
		},
	)

	// RealizedPnL is the cumulative realized P&L across the run.
	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_realized_pnl_usd",
			Help: "Cumulative realized P&L.",
		},
	)

	// FIFOQueueDepth reports the summed quantity of active lots per side.
	FIFOQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backtest_fifo_queue_depth",
			Help: "Active lot quantity in the FIFO queue, by side.",
		},
		[]string{"side"},
	)
)

func init() {
	prometheus.MustRegister(StepsTotal, FillsTotal, TransitionsRejectedTotal)
	prometheus.MustRegister(EquityUSD, RealizedPnL, FIFOQueueDepth)
}
