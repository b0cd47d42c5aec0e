package strategy

import (
	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// MARegimeFilter vetoes a long target when the fast average is below
// the slow average and vetoes a short target when it is above,
// flattening the decision to 0 — an optional regime gate against the
// same fast/slow pipelines a crossover strategy reads.
type MARegimeFilter struct {
	fastName string
	slowName string
}

// NewMARegimeFilter names the fast/slow pipelines it reads.
func NewMARegimeFilter(fastName, slowName string) *MARegimeFilter {
	return &MARegimeFilter{fastName: fastName, slowName: slowName}
}

func (f *MARegimeFilter) Name() string { return "ma_regime_filter" }

func (f *MARegimeFilter) Apply(v view.View, d types.Decision) types.Decision {
	if !v.Features.PipelineReady[f.fastName] || !v.Features.PipelineReady[f.slowName] {
		d.Diagnostics = map[string]any{"reason": "warming_up"}
		return d
	}
	fast := v.Features.Values[f.fastName]
	slow := v.Features.Values[f.slowName]

	switch {
	case d.TargetPosition > 0 && fast < slow:
		d.TargetPosition = 0
		d.Diagnostics = map[string]any{"reason": "vetoed_long_against_regime"}
	case d.TargetPosition < 0 && fast > slow:
		d.TargetPosition = 0
		d.Diagnostics = map[string]any{"reason": "vetoed_short_against_regime"}
	default:
		d.Diagnostics = map[string]any{"reason": "passed"}
	}
	return d
}
