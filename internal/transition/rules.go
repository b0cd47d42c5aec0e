// Package transition implements the Transition Engine: classify a
// (state, event, current, target) tuple into a TransitionType,
// decompose it into atomic open/close actions, and resolve those
// actions against the FIFO lot queues.
package transition

import "github.com/marketsim/backtest-core/internal/types"

// rule classifies one (State, Event) key into a TransitionType, after
// validating its own positional precondition on (current, target).
type rule func(current, target float64) (types.TransitionType, error)

// ruleKey pairs a State with an Event for registry lookup.
type ruleKey struct {
	state types.State
	event types.Event
}

func fail(name, reason string) (types.TransitionType, error) {
	return "", &types.TransitionClassificationError{RuleName: name, Reason: reason}
}

var rules = map[ruleKey]rule{
	{types.StateFlat, types.EventGoFlat}: func(current, target float64) (types.TransitionType, error) {
		if current != 0 || target != 0 {
			return fail("NoOpFromFlat", "requires current=0 and target=0")
		}
		return types.NoOp, nil
	},
	{types.StateFlat, types.EventGoLong}: func(current, target float64) (types.TransitionType, error) {
		if current != 0 || target <= 0 {
			return fail("OpenLongFromFlat", "requires current=0 and target>0")
		}
		return types.TransOpenLong, nil
	},
	{types.StateFlat, types.EventGoShort}: func(current, target float64) (types.TransitionType, error) {
		if current != 0 || target >= 0 {
			return fail("OpenShortFromFlat", "requires current=0 and target<0")
		}
		return types.TransOpenShort, nil
	},
	{types.StateLong, types.EventGoFlat}: func(current, target float64) (types.TransitionType, error) {
		if current <= 0 || target != 0 {
			return fail("CloseLongFromLong", "requires current>0 and target=0")
		}
		return types.TransCloseLong, nil
	},
	{types.StateShort, types.EventGoFlat}: func(current, target float64) (types.TransitionType, error) {
		if current >= 0 || target != 0 {
			return fail("CloseShortFromShort", "requires current<0 and target=0")
		}
		return types.TransCloseShort, nil
	},
	{types.StateLong, types.EventGoLong}: func(current, target float64) (types.TransitionType, error) {
		if current <= 0 || target <= 0 {
			return fail("AdjustLongFromLong", "requires current>0 and target>0")
		}
		switch {
		case target == current:
			return types.NoOp, nil
		case target > current:
			return types.IncreaseLong, nil
		default:
			return types.ReduceLong, nil
		}
	},
	{types.StateShort, types.EventGoShort}: func(current, target float64) (types.TransitionType, error) {
		if current >= 0 || target >= 0 {
			return fail("AdjustShortFromShort", "requires current<0 and target<0")
		}
		switch {
		case target == current:
			return types.NoOp, nil
		case absf(target) > absf(current):
			return types.IncreaseShort, nil
		default:
			return types.ReduceShort, nil
		}
	},
	{types.StateLong, types.EventGoShort}: func(current, target float64) (types.TransitionType, error) {
		if current <= 0 || target >= 0 {
			return fail("ReversalToShortFromLong", "requires current>0 and target<0")
		}
		return types.ReversalToShort, nil
	},
	{types.StateShort, types.EventGoLong}: func(current, target float64) (types.TransitionType, error) {
		if current >= 0 || target <= 0 {
			return fail("ReversalToLongFromShort", "requires current<0 and target>0")
		}
		return types.ReversalToLong, nil
	},
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// classify computes state/event from current/target, looks up the
// registered rule, and applies it. The registry above is exhaustive
// over State x Event (validated in init); an unregistered key can only
// happen if State/Event gain a new case, which init's exhaustiveness
// check catches first.
func classify(current, target float64) (types.State, types.Event, types.TransitionType, error) {
	state := types.StateFromPosition(current)
	event := types.EventFromTarget(target)
	r, ok := rules[ruleKey{state, event}]
	if !ok {
		return state, event, "", &types.ConfigurationError{Reason: "no transition rule registered for this (state, event) pair"}
	}
	tt, err := r(current, target)
	return state, event, tt, err
}

func init() {
	states := []types.State{types.StateFlat, types.StateLong, types.StateShort}
	events := []types.Event{types.EventGoFlat, types.EventGoLong, types.EventGoShort}
	for _, s := range states {
		for _, e := range events {
			if _, ok := rules[ruleKey{s, e}]; !ok {
				panic(&types.ConfigurationError{Reason: "transition rule registry is not exhaustive over (State, Event)"})
			}
		}
	}
}
