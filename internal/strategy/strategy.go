// Package strategy holds the Strategy Orchestrator plus the concrete
// strategies/filters that exercise it: a moving-average crossover
// strategy, a tiny logistic micro-model strategy, and the order that
// composes them with filters into one Decision.
package strategy

import (
	"time"

	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// Metadata declares what a Strategy needs from the Feature Store and
// Market State before it can run.
type Metadata struct {
	Name              string
	RequiredPipelines []string
	RequiredFields    []string
}

// Strategy is a pure decision function plus the metadata the
// Orchestrator validates at construction.
type Strategy interface {
	Metadata() Metadata
	Decide(v view.View) types.Decision
}

// Filter refines a Decision given the same View it was computed from.
type Filter interface {
	Name() string
	Apply(v view.View, d types.Decision) types.Decision
}

// Orchestrator composes one Strategy and an ordered list of Filters
// into a single Decision per step.
type Orchestrator struct {
	strategy Strategy
	filters  []Filter
}

// New validates that every pipeline the strategy requires exists in
// pipelineNames (the Feature Store's registered pipeline set);  a
// missing pipeline is a fatal ConfigurationError.
func New(s Strategy, filters []Filter, pipelineNames map[string]bool) (*Orchestrator, error) {
	for _, name := range s.Metadata().RequiredPipelines {
		if !pipelineNames[name] {
			return nil, &types.ConfigurationError{Reason: "strategy " + s.Metadata().Name + " requires unknown pipeline " + name}
		}
	}
	return &Orchestrator{strategy: s, filters: filters}, nil
}

// Run invokes the strategy, folds the filters left-to-right over its
// output, and aggregates diagnostics under strategy/filters keys.
func (o *Orchestrator) Run(v view.View) types.Decision {
	d := o.strategy.Decide(v)

	strategyDiag := d.Diagnostics
	filterDiags := make([]map[string]any, 0, len(o.filters))

	for _, f := range o.filters {
		d = f.Apply(v, d)
		filterDiags = append(filterDiags, map[string]any{f.Name(): d.Diagnostics})
	}

	d.Diagnostics = map[string]any{
		"strategy": map[string]any{o.strategy.Metadata().Name: strategyDiag},
		"filters":  filterDiags,
	}
	return d
}

// decisionAt is a small constructor helper shared by built-in
// strategies and filters.
func decisionAt(ts time.Time, target, price float64, diag map[string]any) types.Decision {
	return types.Decision{Timestamp: ts, TargetPosition: target, ExecutionPrice: price, Diagnostics: diag}
}
