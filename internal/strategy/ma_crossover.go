package strategy

import (
	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// MACrossover is a unit-sized moving-average crossover strategy: long
// one unit when the fast average is above the slow average, flat
// otherwise. It emits target=0 until both averages are ready (warmup).
type MACrossover struct {
	fastName string
	slowName string
}

// NewMACrossover names the two Feature Store pipelines it reads: a
// fast-window and a slow-window moving average, both required to be
// registered pipelines in the Feature Store this strategy is wired to.
func NewMACrossover(fastName, slowName string) *MACrossover {
	return &MACrossover{fastName: fastName, slowName: slowName}
}

func (s *MACrossover) Metadata() Metadata {
	return Metadata{
		Name:              "ma_crossover",
		RequiredPipelines: []string{s.fastName, s.slowName},
		RequiredFields:    []string{"close"},
	}
}

func (s *MACrossover) Decide(v view.View) types.Decision {
	ts := v.Market.Snapshot.Timestamp
	price := v.Market.Snapshot.Close

	fastReady := v.Features.PipelineReady[s.fastName]
	slowReady := v.Features.PipelineReady[s.slowName]
	if !fastReady || !slowReady {
		return decisionAt(ts, 0, price, map[string]any{"reason": "warming_up"})
	}

	fast := v.Features.Values[s.fastName]
	slow := v.Features.Values[s.slowName]

	target := 0.0
	reason := "flat"
	if fast > slow {
		target = 1
		reason = "fast_above_slow"
	}

	return decisionAt(ts, target, price, map[string]any{
		"reason": reason,
		"fast":   fast,
		"slow":   slow,
	})
}
