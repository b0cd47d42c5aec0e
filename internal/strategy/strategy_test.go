package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/backtest-core/internal/feature"
	"github.com/marketsim/backtest-core/internal/market"
	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

func buildView(closes []float64, featureView feature.View) view.View {
	return view.View{
		Market: market.View{
			Snapshot: types.Bar{Timestamp: time.Unix(int64(len(closes)), 0), Close: closes[len(closes)-1]},
			Closes:   closes,
		},
		Features: featureView,
	}
}

func TestMACrossoverWarmupSuppression(t *testing.T) {
	s := NewMACrossover("fast", "slow")
	v := buildView([]float64{10, 11}, feature.View{
		PipelineReady: map[string]bool{"fast": false, "slow": false},
		Values:        map[string]float64{},
	})
	d := s.Decide(v)
	assert.Equal(t, 0.0, d.TargetPosition)
}

func TestMACrossoverGoesLongWhenFastAboveSlow(t *testing.T) {
	s := NewMACrossover("fast", "slow")
	v := buildView([]float64{10, 11, 12}, feature.View{
		PipelineReady: map[string]bool{"fast": true, "slow": true},
		Values:        map[string]float64{"fast": 12, "slow": 10},
	})
	d := s.Decide(v)
	assert.Equal(t, 1.0, d.TargetPosition)
}

func TestMACrossoverFlatWhenFastBelowSlow(t *testing.T) {
	s := NewMACrossover("fast", "slow")
	v := buildView([]float64{10, 11, 12}, feature.View{
		PipelineReady: map[string]bool{"fast": true, "slow": true},
		Values:        map[string]float64{"fast": 9, "slow": 10},
	})
	d := s.Decide(v)
	assert.Equal(t, 0.0, d.TargetPosition)
}

func TestOrchestratorRejectsUnknownPipeline(t *testing.T) {
	s := NewMACrossover("fast", "slow")
	_, err := New(s, nil, map[string]bool{"fast": true})
	require.Error(t, err)
	assert.IsType(t, &types.ConfigurationError{}, err)
}

func TestOrchestratorFoldsFiltersLeftToRight(t *testing.T) {
	s := NewMACrossover("fast", "slow")
	filter := NewMARegimeFilter("fast", "slow")
	o, err := New(s, []Filter{filter}, map[string]bool{"fast": true, "slow": true})
	require.NoError(t, err)

	v := buildView([]float64{10, 11, 12}, feature.View{
		PipelineReady: map[string]bool{"fast": true, "slow": true},
		Values:        map[string]float64{"fast": 12, "slow": 10},
	})
	d := o.Run(v)
	assert.Equal(t, 1.0, d.TargetPosition)
	diag, ok := d.Diagnostics["strategy"]
	assert.True(t, ok)
	assert.NotNil(t, diag)
}

func TestMARegimeFilterVetoesLongAgainstRegime(t *testing.T) {
	f := NewMARegimeFilter("fast", "slow")
	v := buildView([]float64{10, 11, 12}, feature.View{
		PipelineReady: map[string]bool{"fast": true, "slow": true},
		Values:        map[string]float64{"fast": 9, "slow": 10},
	})
	d := types.Decision{TargetPosition: 1}
	out := f.Apply(v, d)
	assert.Equal(t, 0.0, out.TargetPosition)
}

func TestMicroModelStrategyWarmup(t *testing.T) {
	m := NewMicroModel(42)
	s := NewMicroModelStrategy(m, "rsi14", "zscore20", 0.55, 0.45)
	v := buildView([]float64{10, 11}, feature.View{
		PipelineReady: map[string]bool{"rsi14": false, "zscore20": false},
		Values:        map[string]float64{},
	})
	d := s.Decide(v)
	assert.Equal(t, 0.0, d.TargetPosition)
}

func TestMicroModelDeterministicGivenSeed(t *testing.T) {
	m1 := NewMicroModel(7)
	m2 := NewMicroModel(7)
	p1 := m1.predict([]float64{0.01, 0.02, 0.5, 0.1})
	p2 := m2.predict([]float64{0.01, 0.02, 0.5, 0.1})
	assert.Equal(t, p1, p2)
}
