package strategy

import (
	"math"
	"math/rand"

	"github.com/marketsim/backtest-core/internal/types"
	"github.com/marketsim/backtest-core/internal/view"
)

// MicroModel is a tiny logistic-regression-style directional-bias
// model: four hand-crafted features (1-bar return, 5-bar return,
// rsi/100, zscore) blended through a sigmoid into pUp, the probability
// the next close is higher. Weights are seeded deterministically from
// an explicit seed so a run is reproducible given the same seed.
type MicroModel struct {
	w []float64
	b float64
}

// NewMicroModel returns a model with small random initial weights
// drawn from seed, sized for the four-feature layout (ret1, ret5,
// rsi/100, zscore).
func NewMicroModel(seed int64) *MicroModel {
	rng := rand.New(rand.NewSource(seed))
	w := make([]float64, 4)
	for i := range w {
		w[i] = rng.NormFloat64() * 0.01
	}
	return &MicroModel{w: w}
}

func sigmoid(x float64) float64 {
	if x > 20 {
		return 1
	}
	if x < -20 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func (m *MicroModel) predict(features []float64) float64 {
	if len(features) != len(m.w) {
		return 0.5
	}
	z := m.b
	for i := range features {
		z += m.w[i] * features[i]
	}
	return sigmoid(z)
}

// Fit performs a fixed number of gradient steps against cross-entropy
// loss over features/labels built from a window of closes.
func (m *MicroModel) Fit(closes []float64, rsi14, zscore20 []float64, lr float64, epochs int) {
	feats, labels := buildDataset(closes, rsi14, zscore20)
	for e := 0; e < epochs; e++ {
		for i := range feats {
			p := m.predict(feats[i])
			y := labels[i]
			grad := p - y
			for j := range m.w {
				m.w[j] -= lr * grad * feats[i][j]
			}
			m.b -= lr * grad
		}
	}
}

func buildDataset(closes []float64, rsi14, zscore20 []float64) ([][]float64, []float64) {
	var feats [][]float64
	var labels []float64
	for i := 21; i < len(closes)-1; i++ {
		ret1 := (closes[i] - closes[i-1]) / closes[i-1]
		ret5 := (closes[i] - closes[i-5]) / closes[i-5]
		f := []float64{ret1, ret5, rsi14[i] / 100.0, zscore20[i]}
		up := 0.0
		if closes[i+1] > closes[i] {
			up = 1.0
		}
		feats = append(feats, f)
		labels = append(labels, up)
	}
	return feats, labels
}

// MicroModelStrategy blends the micro-model's pUp against two
// thresholds into a unit long/flat/short target, gated by the rsi and
// zscore pipelines being ready.
type MicroModelStrategy struct {
	model         *MicroModel
	rsiName       string
	zscoreName    string
	buyThreshold  float64
	sellThreshold float64
}

// NewMicroModelStrategy wires model against the named rsi/zscore
// pipelines with the given buy/sell pUp thresholds.
func NewMicroModelStrategy(model *MicroModel, rsiName, zscoreName string, buyThreshold, sellThreshold float64) *MicroModelStrategy {
	return &MicroModelStrategy{
		model:         model,
		rsiName:       rsiName,
		zscoreName:    zscoreName,
		buyThreshold:  buyThreshold,
		sellThreshold: sellThreshold,
	}
}

func (s *MicroModelStrategy) Metadata() Metadata {
	return Metadata{
		Name:              "micro_model",
		RequiredPipelines: []string{s.rsiName, s.zscoreName},
		RequiredFields:    []string{"close"},
	}
}

func (s *MicroModelStrategy) Decide(v view.View) types.Decision {
	ts := v.Market.Snapshot.Timestamp
	price := v.Market.Snapshot.Close
	closes := v.Market.Closes

	if !v.Features.PipelineReady[s.rsiName] || !v.Features.PipelineReady[s.zscoreName] || len(closes) < 6 {
		return decisionAt(ts, 0, price, map[string]any{"reason": "not_enough_data", "p_up": 0.0})
	}

	i := len(closes) - 1
	ret1 := (closes[i] - closes[i-1]) / closes[i-1]
	ret5 := 0.0
	if i >= 5 {
		ret5 = (closes[i] - closes[i-5]) / closes[i-5]
	}
	rsi := v.Features.Values[s.rsiName]
	z := v.Features.Values[s.zscoreName]

	pUp := s.model.predict([]float64{ret1, ret5, rsi / 100.0, z})

	target := 0.0
	reason := "flat"
	switch {
	case pUp >= s.buyThreshold:
		target = 1
		reason = "p_up_above_buy_threshold"
	case pUp <= s.sellThreshold:
		target = -1
		reason = "p_up_below_sell_threshold"
	}

	return decisionAt(ts, target, price, map[string]any{"reason": reason, "p_up": pUp})
}
