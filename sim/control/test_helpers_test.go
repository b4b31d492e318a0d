package control

import (
	"github.com/mm1-sim/mm1-sim/sim"
)

// fakePlant is a Plant with fixed utilization samples and unvalidated rates.
type fakePlant struct {
	lambda, mu float64
	util       *sim.History
	clock      float64
}

// newFakePlant returns a plant whose utilization history holds n copies of util.
func newFakePlant(lambda, mu, util float64, n int) *fakePlant {
	h := sim.NewHistory(1000)
	for i := 0; i < n; i++ {
		h.Record(util)
	}
	return &fakePlant{lambda: lambda, mu: mu, util: h}
}

func (p *fakePlant) ArrivalRate() float64 { return p.lambda }
func (p *fakePlant) ServiceRate() float64 { return p.mu }
func (p *fakePlant) SetArrivalRate(v float64) error { p.lambda = v; return nil }
func (p *fakePlant) SetServiceRate(v float64) error { p.mu = v; return nil }
func (p *fakePlant) CurrentTime() float64 { return p.clock }
func (p *fakePlant) UtilizationHistory() sim.HistoryReader { return p.util }

// enabledController builds an enabled controller with the given strategy and target.
func enabledController(p Plant, s Strategy, target float64) *Controller {
	cfg := DefaultConfig()
	cfg.TargetUtilization = target
	c, err := NewController(p, cfg)
	if err != nil {
		panic(err)
	}
	c.SetStrategy(string(s))
	c.SetEnabled(true)
	return c
}
