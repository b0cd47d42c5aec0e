package types

import "time"

// Bar is a time-bucketed OHLCV quote. Low <= min(Open,Close) <=
// max(Open,Close) <= High and Volume >= 0 are enforced by the feed
// collaborator (internal/feed) before a Bar ever reaches MarketState.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Decision is the Strategy Orchestrator's output: the position the
// strategy (after filters) wants to hold after the current bar.
type Decision struct {
	Timestamp      time.Time
	TargetPosition float64
	ExecutionPrice float64
	Diagnostics    map[string]any
}

// OCOBracket is the optional stop-loss/take-profit pair an execution
// planner may attach to a Decision.
type OCOBracket struct {
	StopLoss   *float64
	TakeProfit *float64
}

// ExecutionPlan lifts a Decision with an optional bracket. Planners
// must preserve Timestamp and ExecutionPrice unchanged from the
// Decision they were given.
type ExecutionPlan struct {
	Timestamp      time.Time
	TargetPosition float64
	ExecutionPrice float64
	OCO            *OCOBracket
	Diagnostics    map[string]any
}

// AtomicAction is one primitive open/close instruction produced by a
// transition strategy (decomposer).
type AtomicAction struct {
	Type      AtomicActionType
	Quantity  float64
	Timestamp time.Time
}

// FIFOPosition is a single open lot sitting in the portfolio's per-side
// queue, in insertion order.
type FIFOPosition struct {
	ID        int64
	IsActive  bool
	Timestamp time.Time
	Side      Side
	Quantity  float64
	Price     float64
}

// FIFOOperation is an open or close instruction targeting a specific
// lot (for CLOSE) produced by the FIFO Resolver.
type FIFOOperation struct {
	ID               int64
	Timestamp        time.Time
	Type             OperationType
	Side             Side
	Quantity         float64
	ExecutionPrice   float64
	LinkedPositionID *int64 // required iff Type == Close
}

// Fill is the immutable audit record produced by applying exactly one
// FIFOOperation to the portfolio.
type Fill struct {
	Timestamp        time.Time
	OpType           OperationType
	Side             Side
	Quantity         float64
	ExecutionPrice   float64
	EntryPrice       *float64
	ExitPrice        *float64
	PositionBefore   float64
	PositionAfter    float64
	CashBefore       float64
	CashAfter        float64
	RealizedPnL      *float64
	LinkedPositionID *int64
	OperationID      int64
}

// TransitionLog is the debug-level audit record the Transition Engine
// emits once per step, deduplicated against the previous entry.
type TransitionLog struct {
	State          State
	Event          Event
	Current        float64
	Target         float64
	RuleName       string
	StrategyName   string
	TransitionType TransitionType
	NActions       int
	NFIFOOps       int
}

// Equal reports whether two TransitionLog entries carry the same
// classification (used to suppress duplicate debug log spam).
func (l TransitionLog) Equal(o TransitionLog) bool {
	return l.State == o.State &&
		l.Event == o.Event &&
		l.Current == o.Current &&
		l.Target == o.Target &&
		l.RuleName == o.RuleName &&
		l.StrategyName == o.StrategyName &&
		l.TransitionType == o.TransitionType &&
		l.NActions == o.NActions &&
		l.NFIFOOps == o.NFIFOOps
}
