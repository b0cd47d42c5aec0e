// Package planner lifts a Decision into an ExecutionPlan, optionally
// attaching a stop-loss/take-profit bracket.
package planner

import (
	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// Planner is a single-method collaborator: plan(view, decision) ->
// ExecutionPlan.
type Planner interface {
	Plan(v view.View, d types.Decision) types.ExecutionPlan
}

// NoBracket is the default planner: it copies the decision's fields
// unchanged and attaches no OCO bracket.
type NoBracket struct{}

func (NoBracket) Plan(v view.View, d types.Decision) types.ExecutionPlan {
	return types.ExecutionPlan{
		Timestamp:      d.Timestamp,
		TargetPosition: d.TargetPosition,
		ExecutionPrice: d.ExecutionPrice,
		OCO:            nil,
		Diagnostics:    d.Diagnostics,
	}
}

// FixedPercentOCO attaches a symmetric stop-loss/take-profit bracket
// around the decision's execution price, sized by fixed percentages
// and signed by the target's direction. No bracket is attached when
// the target position is flat.
type FixedPercentOCO struct {
	StopLossPct   float64
	TakeProfitPct float64
}

func (p FixedPercentOCO) Plan(v view.View, d types.Decision) types.ExecutionPlan {
	plan := types.ExecutionPlan{
		Timestamp:      d.Timestamp,
		TargetPosition: d.TargetPosition,
		ExecutionPrice: d.ExecutionPrice,
		Diagnostics:    d.Diagnostics,
	}
	if d.TargetPosition == 0 {
		return plan
	}

	px := d.ExecutionPrice
	long := d.TargetPosition > 0

	var sl, tp float64
	if long {
		sl = px * (1 - p.StopLossPct)
		tp = px * (1 + p.TakeProfitPct)
	} else {
		sl = px * (1 + p.StopLossPct)
		tp = px * (1 - p.TakeProfitPct)
	}
	plan.OCO = &types.OCOBracket{StopLoss: &sl, TakeProfit: &tp}
	return plan
}
