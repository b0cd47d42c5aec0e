package transition

import (
	"log"

	"github.com/marketsim/backtest-core/internal/metrics"
	"github.com/marketsim/backtest-core/internal/types"
)

// IDSource hands out monotone FIFOOperation ids; the engine's
// Portfolio satisfies this.
type IDSource = idSource

// Engine is the single entry point binding rules, decomposers, and the
// FIFO resolver together, plus deduplicated TransitionLog emission.
type Engine struct {
	lastLog *types.TransitionLog
}

// NewEngine returns a Transition Engine with no prior logged entry.
func NewEngine() *Engine {
	return &Engine{}
}

// Process classifies the (current, target) delta from plan, decomposes
// it into atomic actions, and resolves those actions against lots to
// produce the ordered FIFOOperations the Portfolio must apply. It
// returns the TransitionLog entry for this step alongside the
// operations, so a caller can accumulate a run-level transition log.
func (e *Engine) Process(plan types.ExecutionPlan, currentPosition float64, lots map[types.Side][]*types.FIFOPosition, ids idSource) (types.TransitionLog, []types.FIFOOperation, error) {
	state, event, tt, err := classify(currentPosition, plan.TargetPosition)
	if err != nil {
		metrics.TransitionsRejectedTotal.WithLabelValues("classification").Inc()
		return types.TransitionLog{}, nil, err
	}

	actions, err := decompose(tt, currentPosition, plan.TargetPosition, plan.Timestamp)
	if err != nil {
		metrics.TransitionsRejectedTotal.WithLabelValues("decomposition").Inc()
		return types.TransitionLog{}, nil, err
	}

	var ops []types.FIFOOperation
	for _, a := range actions {
		actionOps, err := resolve(a, plan.ExecutionPrice, lots, ids)
		if err != nil {
			metrics.TransitionsRejectedTotal.WithLabelValues("fifo_guard").Inc()
			return types.TransitionLog{}, nil, err
		}
		ops = append(ops, actionOps...)
	}

	ruleName, strategyName := classificationNames(state, event, tt)
	entry := types.TransitionLog{
		State:          state,
		Event:          event,
		Current:        currentPosition,
		Target:         plan.TargetPosition,
		RuleName:       ruleName,
		StrategyName:   strategyName,
		TransitionType: tt,
		NActions:       len(actions),
		NFIFOOps:       len(ops),
	}
	e.emit(entry)

	return entry, ops, nil
}

// emit logs entry at debug level unless it is identical to the
// previously logged entry, avoiding per-step log spam for NO_OP runs.
func (e *Engine) emit(entry types.TransitionLog) {
	if e.lastLog != nil && e.lastLog.Equal(entry) {
		return
	}
	cp := entry
	e.lastLog = &cp
	log.Printf("[TRANSITION] state=%s event=%s current=%.8f target=%.8f rule=%s strategy=%s type=%s n_actions=%d n_fifo_ops=%d",
		entry.State, entry.Event, entry.Current, entry.Target, entry.RuleName, entry.StrategyName, entry.TransitionType, entry.NActions, entry.NFIFOOps)
}

func classificationNames(state types.State, event types.Event, tt types.TransitionType) (rule, strategy string) {
	return string(state) + "_" + string(event), string(tt)
}
