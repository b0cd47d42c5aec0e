// Package view composes the engine-owned market, feature, and
// portfolio state into one immutable bundle handed by value to the
// strategy, filters, and planner on every step.
package view

import (
	"github.com/marketsim/backtest-core/internal/feature"
	"github.com/marketsim/backtest-core/internal/market"
	"github.com/marketsim/backtest-core/internal/portfolio"
)

// View is the read-only snapshot built fresh each step.
type View struct {
	Market    market.View
	Features  feature.View
	Execution portfolio.View
}
