// Package market holds MarketState: the engine's own record of every
// bar ingested so far, exposed to collaborators as an immutable View.
package market

import (
	"time"

	"github.com/marketsim/backtest-core/internal/types"
)

// maxHistory bounds the per-field rolling history kept in a View so a
// long-running backtest does not grow the snapshot without limit.
const maxHistory = 5000

// View is the read-only snapshot handed to strategies, filters, and
// planners: the latest bar plus bounded per-field history in ingestion
// order (oldest first).
type View struct {
	Snapshot types.Bar
	Opens    []float64
	Highs    []float64
	Lows     []float64
	Closes   []float64
	Volumes  []float64
	Times    []time.Time
}

// State is the engine-owned market collaborator. It ingests one Bar
// per step and rejects any bar that does not strictly advance the
// clock.
type State struct {
	initialized bool
	last        types.Bar

	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
	times   []time.Time
}

// New returns an empty MarketState ready for its first Ingest.
func New() *State {
	return &State{}
}

// Ingest appends bar to the history. The timestamp must be strictly
// greater than the previous bar's; a regression or a duplicate
// timestamp is rejected.
func (s *State) Ingest(bar types.Bar) error {
	if s.initialized && !bar.Timestamp.After(s.last.Timestamp) {
		return &types.BacktestInvariant{Reason: "market ingest: non-monotone or duplicate timestamp"}
	}
	s.opens = appendBounded(s.opens, bar.Open)
	s.highs = appendBounded(s.highs, bar.High)
	s.lows = appendBounded(s.lows, bar.Low)
	s.closes = appendBounded(s.closes, bar.Close)
	s.volumes = appendBounded(s.volumes, bar.Volume)
	s.times = appendBoundedTime(s.times, bar.Timestamp)
	s.last = bar
	s.initialized = true
	return nil
}

// View returns the current snapshot and bounded history. Fails with
// MarketNotInitialized if called before the first Ingest.
func (s *State) View() (View, error) {
	if !s.initialized {
		return View{}, &types.MarketNotInitialized{}
	}
	return View{
		Snapshot: s.last,
		Opens:    s.opens,
		Highs:    s.highs,
		Lows:     s.lows,
		Closes:   s.closes,
		Volumes:  s.volumes,
		Times:    s.times,
	}, nil
}

func appendBounded(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > maxHistory {
		hist = hist[len(hist)-maxHistory:]
	}
	return hist
}

func appendBoundedTime(hist []time.Time, v time.Time) []time.Time {
	hist = append(hist, v)
	if len(hist) > maxHistory {
		hist = hist[len(hist)-maxHistory:]
	}
	return hist
}
