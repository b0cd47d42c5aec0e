// Package feature holds the Feature Store: a registry of named
// pipelines run once per step against the Market State, each writing
// scalar values (and optional history) back into the store.
package feature

import (
	"fmt"

	"github.com/marketsim/backtest-core/internal/market"
	"github.com/marketsim/backtest-core/internal/types"
)

// maxHistory bounds the per-name history a pipeline may accumulate.
const maxHistory = 5000

// Pipeline is one named feature computation. Update reads the current
// market view and writes into store via SetValue/SetPipelineReady;
// it calls SetPipelineReady(Name()) only once it has produced a usable
// value for the step. A sentinel written during warmup (e.g. 0) leaves
// the pipeline not-ready — readiness is a separate signal from the value.
type Pipeline interface {
	Name() string
	Update(mv market.View, store *Store)
}

// View is the immutable snapshot handed to strategies and filters:
// current values, bounded history, and per-pipeline/global readiness.
type View struct {
	Values        map[string]float64
	History       map[string][]float64
	PipelineReady map[string]bool
	GlobalReady   bool
}

// Store holds the registered pipelines plus their accumulated state.
type Store struct {
	pipelines []Pipeline
	values    map[string]float64
	history   map[string][]float64
	ready     map[string]bool
}

// New registers pipelines in the given order. Duplicate names are a
// fatal ConfigurationError.
func New(pipelines ...Pipeline) (*Store, error) {
	seen := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		if seen[p.Name()] {
			return nil, &types.ConfigurationError{Reason: fmt.Sprintf("duplicate feature pipeline name %q", p.Name())}
		}
		seen[p.Name()] = true
	}
	return &Store{
		pipelines: pipelines,
		values:    make(map[string]float64),
		history:   make(map[string][]float64),
		ready:     make(map[string]bool, len(pipelines)),
	}, nil
}

// Names returns the registered pipeline names, for orchestrator-time
// validation of a strategy's required_pipelines.
func (s *Store) Names() map[string]bool {
	out := make(map[string]bool, len(s.pipelines))
	for _, p := range s.pipelines {
		out[p.Name()] = true
	}
	return out
}

// Update runs the lifecycle for one step: clear ready flags, then run
// each pipeline in registration order against mv.
func (s *Store) Update(mv market.View) {
	for name := range s.ready {
		s.ready[name] = false
	}
	for _, p := range s.pipelines {
		p.Update(mv, s)
	}
}

// Reset clears all accumulated values, history, and readiness without
// discarding the registered pipeline set, so one Store instance can
// drive a fresh Run.
func (s *Store) Reset() {
	s.values = make(map[string]float64)
	s.history = make(map[string][]float64)
	s.ready = make(map[string]bool, len(s.pipelines))
}

// SetValue records the current value for name and appends it to that
// name's bounded history. Called by a Pipeline during Update.
func (s *Store) SetValue(name string, value float64) {
	s.values[name] = value
	h := append(s.history[name], value)
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	s.history[name] = h
}

// SetPipelineReady marks name as having produced a usable value for
// the current step. Called by a Pipeline during Update.
func (s *Store) SetPipelineReady(name string) {
	s.ready[name] = true
}

// View returns the current values/history/readiness snapshot.
// global_ready is the conjunction of every registered pipeline's
// readiness, or true if no pipeline is registered.
func (s *Store) View() View {
	values := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	history := make(map[string][]float64, len(s.history))
	for k, v := range s.history {
		cp := make([]float64, len(v))
		copy(cp, v)
		history[k] = cp
	}
	ready := make(map[string]bool, len(s.ready))
	global := true
	for _, p := range s.pipelines {
		r := s.ready[p.Name()]
		ready[p.Name()] = r
		global = global && r
	}
	return View{Values: values, History: history, PipelineReady: ready, GlobalReady: global}
}
