package types

import "fmt"

// BacktestInvariant signals a timestamp mismatch between stages, an
// empty event stream, or a monotonicity violation — anything that
// breaks the engine's own step contract rather than a collaborator's.
type BacktestInvariant struct {
	Reason string
}

func (e *BacktestInvariant) Error() string {
	return fmt.Sprintf("backtest invariant violated: %s", e.Reason)
}

// MarketNotInitialized is returned by MarketState.View before the
// first Ingest call.
type MarketNotInitialized struct{}

func (e *MarketNotInitialized) Error() string {
	return "market state: view requested before first ingest"
}

// TransitionClassificationError signals a precondition violated inside
// a transition rule, e.g. "OPEN_LONG requires current=0 and target>0".
type TransitionClassificationError struct {
	RuleName string
	Reason   string
}

func (e *TransitionClassificationError) Error() string {
	return fmt.Sprintf("transition classification error in %s: %s", e.RuleName, e.Reason)
}

// TransitionDecompositionError signals a precondition violated inside
// a decomposer (transition strategy).
type TransitionDecompositionError struct {
	StrategyName string
	Reason       string
}

func (e *TransitionDecompositionError) Error() string {
	return fmt.Sprintf("transition decomposition error in %s: %s", e.StrategyName, e.Reason)
}

// GuardKind identifies which FIFO resolver safety guard failed.
type GuardKind string

const (
	ActionPrice     GuardKind = "ActionPrice"
	ActionQuantity  GuardKind = "ActionQuantity"
	ActionType      GuardKind = "ActionType"
	ActionTimestamp GuardKind = "ActionTimestamp"
	FIFOCapacity    GuardKind = "FIFOCapacity"
)

// GuardViolation is raised by the FIFO Resolver when one of its safety
// guards fails before or during the lot walk.
type GuardViolation struct {
	Kind   GuardKind
	Reason string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("fifo guard violation (%s): %s", e.Kind, e.Reason)
}

// PortfolioExecutionError covers a missing lot by id, closing an
// already-inactive lot, or a close quantity exceeding the lot quantity.
type PortfolioExecutionError struct {
	Reason string
}

func (e *PortfolioExecutionError) Error() string {
	return fmt.Sprintf("portfolio execution error: %s", e.Reason)
}

// ConfigurationError covers non-exhaustive registries at startup,
// duplicate registrations, or a strategy requiring an unknown pipeline.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}
