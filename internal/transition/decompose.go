package transition

import (
	"time"

	"github.com/marketsim/backtest-core/internal/types"
)

// decomposer turns a classified TransitionType plus (current, target)
// into an ordered list of AtomicActions, after validating its own
// precondition.
type decomposer func(current, target float64, ts time.Time) ([]types.AtomicAction, error)

func decomposeFail(name, reason string) ([]types.AtomicAction, error) {
	return nil, &types.TransitionDecompositionError{StrategyName: name, Reason: reason}
}

func action(t types.AtomicActionType, qty float64, ts time.Time) types.AtomicAction {
	return types.AtomicAction{Type: t, Quantity: qty, Timestamp: ts}
}

var decomposers = map[types.TransitionType]decomposer{
	types.NoOp: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		return []types.AtomicAction{}, nil
	},
	types.TransOpenLong: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if target <= 0 {
			return decomposeFail("OpenLong", "target must be positive")
		}
		return []types.AtomicAction{action(types.OpenLong, target, ts)}, nil
	},
	types.TransOpenShort: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if target >= 0 {
			return decomposeFail("OpenShort", "target must be negative")
		}
		return []types.AtomicAction{action(types.OpenShort, absf(target), ts)}, nil
	},
	types.TransCloseLong: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if current <= 0 {
			return decomposeFail("CloseLong", "current must be positive")
		}
		return []types.AtomicAction{action(types.CloseLong, current, ts)}, nil
	},
	types.TransCloseShort: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if current >= 0 {
			return decomposeFail("CloseShort", "current must be negative")
		}
		return []types.AtomicAction{action(types.CloseShort, absf(current), ts)}, nil
	},
	types.IncreaseLong: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if target <= current {
			return decomposeFail("IncreaseLong", "target must exceed current")
		}
		return []types.AtomicAction{action(types.OpenLong, target-current, ts)}, nil
	},
	types.IncreaseShort: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if absf(target) <= absf(current) {
			return decomposeFail("IncreaseShort", "|target| must exceed |current|")
		}
		return []types.AtomicAction{action(types.OpenShort, absf(target-current), ts)}, nil
	},
	types.ReduceLong: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if target >= current {
			return decomposeFail("ReduceLong", "target must be less than current")
		}
		return []types.AtomicAction{action(types.CloseLong, current-target, ts)}, nil
	},
	types.ReduceShort: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if absf(target) >= absf(current) {
			return decomposeFail("ReduceShort", "|target| must be less than |current|")
		}
		return []types.AtomicAction{action(types.CloseShort, absf(current-target), ts)}, nil
	},
	types.ReversalToLong: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if current >= 0 || target <= 0 {
			return decomposeFail("ReversalToLong", "requires current<0 and target>0")
		}
		return []types.AtomicAction{
			action(types.CloseShort, absf(current), ts),
			action(types.OpenLong, target, ts),
		}, nil
	},
	types.ReversalToShort: func(current, target float64, ts time.Time) ([]types.AtomicAction, error) {
		if current <= 0 || target >= 0 {
			return decomposeFail("ReversalToShort", "requires current>0 and target<0")
		}
		return []types.AtomicAction{
			action(types.CloseLong, current, ts),
			action(types.OpenShort, absf(target), ts),
		}, nil
	},
}

func decompose(tt types.TransitionType, current, target float64, ts time.Time) ([]types.AtomicAction, error) {
	d, ok := decomposers[tt]
	if !ok {
		return nil, &types.ConfigurationError{Reason: "no decomposer registered for transition type " + string(tt)}
	}
	return d(current, target, ts)
}

func init() {
	all := []types.TransitionType{
		types.NoOp, types.TransOpenLong, types.TransOpenShort, types.TransCloseLong,
		types.TransCloseShort, types.IncreaseLong, types.IncreaseShort, types.ReduceLong,
		types.ReduceShort, types.ReversalToLong, types.ReversalToShort,
	}
	for _, tt := range all {
		if _, ok := decomposers[tt]; !ok {
			panic(&types.ConfigurationError{Reason: "decomposer registry is not exhaustive over TransitionType"})
		}
	}
}
