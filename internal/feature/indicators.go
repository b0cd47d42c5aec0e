package feature

import (
	"math"

	"github.com/marketsim/backtest-core/internal/market"
)

// SMAPipeline computes the n-period simple moving average of Close,
// reporting not-ready (and a zero value) until more than n observations
// have accumulated — the window must be full plus one bar of lag
// before the average is trusted.
type SMAPipeline struct {
	name string
	n    int
}

func NewSMAPipeline(name string, n int) *SMAPipeline { return &SMAPipeline{name: name, n: n} }

func (p *SMAPipeline) Name() string { return p.name }

func (p *SMAPipeline) Update(mv market.View, store *Store) {
	closes := mv.Closes
	if p.n <= 0 || len(closes) <= p.n {
		store.SetValue(p.name, 0)
		return
	}
	var sum float64
	for _, c := range closes[len(closes)-p.n:] {
		sum += c
	}
	store.SetValue(p.name, sum/float64(p.n))
	store.SetPipelineReady(p.name)
}

// RSIPipeline computes the n-period Wilder-smoothed RSI of Close over
// the full available history each step. Reports not-ready until n+1
// closes have accumulated.
type RSIPipeline struct {
	name string
	n    int
}

func NewRSIPipeline(name string, n int) *RSIPipeline { return &RSIPipeline{name: name, n: n} }

func (p *RSIPipeline) Name() string { return p.name }

func (p *RSIPipeline) Update(mv market.View, store *Store) {
	closes := mv.Closes
	if p.n <= 0 || len(closes) <= p.n {
		store.SetValue(p.name, 0)
		return
	}
	var gain, loss float64
	for i := 1; i <= p.n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(p.n)
	avgLoss := loss / float64(p.n)
	for i := p.n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		avgGain = (avgGain*float64(p.n-1) + up) / float64(p.n)
		avgLoss = (avgLoss*float64(p.n-1) + down) / float64(p.n)
	}
	rs := 0.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	store.SetValue(p.name, 100.0-(100.0/(1.0+rs)))
	store.SetPipelineReady(p.name)
}

// ZScorePipeline computes the rolling z-score of Close over window n.
// Reports not-ready until more than n observations have accumulated.
type ZScorePipeline struct {
	name string
	n    int
}

func NewZScorePipeline(name string, n int) *ZScorePipeline { return &ZScorePipeline{name: name, n: n} }

func (p *ZScorePipeline) Name() string { return p.name }

func (p *ZScorePipeline) Update(mv market.View, store *Store) {
	closes := mv.Closes
	if p.n <= 1 || len(closes) <= p.n {
		store.SetValue(p.name, 0)
		return
	}
	window := closes[len(closes)-p.n:]
	var sum, sumSq float64
	for _, x := range window {
		sum += x
		sumSq += x * x
	}
	mean := sum / float64(p.n)
	variance := (sumSq / float64(p.n)) - (mean * mean)
	std := math.Sqrt(math.Max(variance, 1e-12))
	store.SetValue(p.name, (window[len(window)-1]-mean)/std)
	store.SetPipelineReady(p.name)
}
