// Package backtest binds the Market State, Feature Store, Strategy
// Orchestrator, Execution Planner, Transition Engine, and Portfolio
// into the outer step/run loop.
package backtest

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/marketsim/backtest-core/internal/feature"
	"github.com/marketsim/backtest-core/internal/market"
	"github.com/marketsim/backtest-core/internal/metrics"
	"github.com/marketsim/backtest-core/internal/planner"
	"github.com/marketsim/backtest-core/internal/portfolio"
	"github.com/marketsim/backtest-core/internal/strategy"
	"github.com/marketsim/backtest-core/internal/transition"
	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// StepRecord is the immutable audit record emitted by one Step call.
type StepRecord struct {
	Timestamp      time.Time
	Event          types.Bar
	Decision       types.Decision
	Plan           types.ExecutionPlan
	Operations     []types.FIFOOperation
	Fills          []types.Fill
	ExecutionAfter portfolio.View
	Diagnostics    map[string]any
}

// RunMetrics is the summary metrics block attached to a RunResult.
type RunMetrics struct {
	RealizedPnL   float64
	UnrealizedPnL float64
	FinalCash     float64
	FinalPosition float64
}

// RunResult is the engine's output from a complete Run. RunID is a
// random correlation id assigned per Run call for log/export
// cross-referencing, not simulation state — it is the one field two
// fresh engines replaying the same event stream will never agree on;
// every other field is expected to match bit-for-bit.
type RunResult struct {
	RunID         string
	Instrument    string
	StartTS       types.Bar
	EndTS         types.Bar
	Metrics       RunMetrics
	ExecutionLog  []types.Fill
	TransitionLog []types.TransitionLog
	Diagnostics   []map[string]any
}

// Engine is the outer step/run loop binding every collaborator
// together. Market/Features/Portfolio are engine-owned mutable state;
// Strategy/Planner are supplied pure collaborators.
type Engine struct {
	instrument   string
	market       *market.State
	features     *feature.Store
	orchestrator *strategy.Orchestrator
	planner      planner.Planner
	transition   *transition.Engine
	portfolio    *portfolio.Portfolio

	executionLog  []types.Fill
	transitionLog []types.TransitionLog
}

// New wires the engine's collaborators. initialCash seeds the
// portfolio; the feature store and orchestrator must already have
// been constructed against each other (strategy.New validates
// required pipelines against the store's registered names).
func New(instrument string, initialCash float64, m *market.State, f *feature.Store, o *strategy.Orchestrator, p planner.Planner) *Engine {
	return &Engine{
		instrument:   instrument,
		market:       m,
		features:     f,
		orchestrator: o,
		planner:      p,
		transition:   transition.NewEngine(),
		portfolio:    portfolio.New(initialCash),
	}
}

// Step ingests one bar and runs it through market/feature update,
// strategy decision, planning, transition classification, and
// portfolio execution, in that order.
func (e *Engine) Step(event types.Bar) (StepRecord, error) {
	if err := e.market.Ingest(event); err != nil {
		return StepRecord{}, err
	}
	mv, err := e.market.View()
	if err != nil {
		return StepRecord{}, err
	}
	e.features.Update(mv)

	v := view.View{
		Market:    mv,
		Features:  e.features.View(),
		Execution: e.portfolio.View(mv.Snapshot.Close),
	}

	decision := e.orchestrator.Run(v)

	plan := e.planner.Plan(v, decision)
	if !plan.Timestamp.Equal(mv.Snapshot.Timestamp) {
		return StepRecord{}, &types.BacktestInvariant{Reason: "plan timestamp does not match market timestamp"}
	}

	logEntry, ops, err := e.transition.Process(plan, e.portfolio.CurrentPosition(), e.portfolio.Lots(), e.portfolio)
	if err != nil {
		return StepRecord{}, err
	}
	e.transitionLog = append(e.transitionLog, logEntry)

	fills, err := e.portfolio.ApplyOperations(ops)
	if err != nil {
		return StepRecord{}, err
	}
	e.executionLog = append(e.executionLog, fills...)

	metrics.StepsTotal.Inc()
	metrics.EquityUSD.Set(e.portfolio.Cash() + e.portfolio.UnrealizedPnL(mv.Snapshot.Close))

	return StepRecord{
		Timestamp:      event.Timestamp,
		Event:          event,
		Decision:       decision,
		Plan:           plan,
		Operations:     ops,
		Fills:          fills,
		ExecutionAfter: e.portfolio.View(mv.Snapshot.Close),
		Diagnostics:    decision.Diagnostics,
	}, nil
}

// Run streams events through Step in order and returns the aggregated
// result. An empty stream is a fatal BacktestInvariant.
func (e *Engine) Run(events []types.Bar) (RunResult, error) {
	if len(events) == 0 {
		return RunResult{}, &types.BacktestInvariant{Reason: "No events provided"}
	}

	var diagnostics []map[string]any
	for _, ev := range events {
		rec, err := e.Step(ev)
		if err != nil {
			log.Printf("[BACKTEST] step failed at ts=%v: %v", ev.Timestamp, err)
			return RunResult{}, err
		}
		diagnostics = append(diagnostics, rec.Diagnostics)
	}

	last := events[len(events)-1]
	return RunResult{
		RunID:      uuid.NewString(),
		Instrument: e.instrument,
		StartTS:    events[0],
		EndTS:      last,
		Metrics: RunMetrics{
			RealizedPnL:   e.portfolio.RealizedPnL(),
			UnrealizedPnL: e.portfolio.UnrealizedPnL(last.Close),
			FinalCash:     e.portfolio.Cash(),
			FinalPosition: e.portfolio.CurrentPosition(),
		},
		ExecutionLog:  e.executionLog,
		TransitionLog: e.transitionLog,
		Diagnostics:   diagnostics,
	}, nil
}

// Reset clears the feature pipeline state for a fresh Run sharing this
// engine instance; Market and Portfolio are not reusable across runs
// and a caller wanting a second run should construct a new Engine.
func (e *Engine) Reset() {
	e.features.Reset()
}
