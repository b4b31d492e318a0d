// Package control implements the closed-loop controller that nudges an
// engine's arrival and service rates towards a target utilization.
package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mm1-sim/mm1-sim/sim"
	"github.com/mm1-sim/mm1-sim/sim/trace"
)

// ErrInvalidConfig is returned by NewController for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid controller config")

// Plant is the engine surface the controller reads and writes.
// *sim.Engine satisfies it.
type Plant interface {
	ArrivalRate() float64
	ServiceRate() float64
	SetArrivalRate(rate float64) error
	SetServiceRate(rate float64) error
	CurrentTime() float64
	UtilizationHistory() sim.HistoryReader
}

// Config tunes the controller. Use DefaultConfig and override fields.
type Config struct {
	TargetUtilization float64 // in (0, 1]
	AdjustmentRate    float64 // base step for λ/μ changes
	MeasurementWindow int     // utilization samples averaged per tick
	Tolerance         float64 // |error| at or below this is left alone
	MinArrivalRate    float64 // arrival-only floor
	MaxArrivalRate    float64 // arrival-only ceiling
	MinServiceRate    float64 // service-only floor
}

// DefaultConfig returns the standard tuning: target 1.0, step 0.01,
// window 100, tolerance 0.02, λ ∈ [0.1, 10], μ >= 0.5.
func DefaultConfig() Config {
	return Config{
		TargetUtilization: 1.0,
		AdjustmentRate:    0.01,
		MeasurementWindow: 100,
		Tolerance:         0.02,
		MinArrivalRate:    0.1,
		MaxArrivalRate:    10.0,
		MinServiceRate:    0.5,
	}
}

func (c Config) validate() error {
	switch {
	case !(c.TargetUtilization > 0 && c.TargetUtilization <= 1):
		return fmt.Errorf("%w: target utilization %v not in (0, 1]", ErrInvalidConfig, c.TargetUtilization)
	case !(c.AdjustmentRate > 0):
		return fmt.Errorf("%w: adjustment rate %v must be positive", ErrInvalidConfig, c.AdjustmentRate)
	case c.MeasurementWindow <= 0:
		return fmt.Errorf("%w: measurement window %d must be positive", ErrInvalidConfig, c.MeasurementWindow)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance %v must not be negative", ErrInvalidConfig, c.Tolerance)
	case !(c.MinArrivalRate > 0) || c.MaxArrivalRate < c.MinArrivalRate:
		return fmt.Errorf("%w: arrival bounds [%v, %v]", ErrInvalidConfig, c.MinArrivalRate, c.MaxArrivalRate)
	case !(c.MinServiceRate > 0):
		return fmt.Errorf("%w: min service rate %v must be positive", ErrInvalidConfig, c.MinServiceRate)
	}
	return nil
}

// Controller holds a reference to, not ownership of, the plant. It starts
// disabled with StrategyArrivalOnly.
//
// Thread-safety: NOT thread-safe. Call from the goroutine that steps the engine.
type Controller struct {
	plant    Plant
	cfg      Config
	strategy Strategy
	enabled  bool
	cycle    InstabilityCycle
	ticks    int64
	trace    *trace.AdjustmentTrace
}

// NewController creates a disabled controller for plant. The plant's
// utilization history must be able to hold MeasurementWindow samples.
func NewController(plant Plant, cfg Config) (*Controller, error) {
	if plant == nil {
		return nil, fmt.Errorf("%w: plant must not be nil", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if c := plant.UtilizationHistory().Cap(); c < cfg.MeasurementWindow {
		return nil, fmt.Errorf("%w: measurement window %d exceeds utilization history capacity %d", ErrInvalidConfig, cfg.MeasurementWindow, c)
	}
	return &Controller{
		plant:    plant,
		cfg:      cfg,
		strategy: StrategyArrivalOnly,
	}, nil
}

// SetTrace attaches an adjustment trace. Passing nil disables recording.
func (c *Controller) SetTrace(t *trace.AdjustmentTrace) { c.trace = t }

// Config returns the controller tuning.
func (c *Controller) Config() Config { return c.cfg }

// Strategy returns the active strategy.
func (c *Controller) Strategy() Strategy { return c.strategy }

// StrategyInfo returns a human-readable description of the active strategy.
func (c *Controller) StrategyInfo() string { return c.strategy.Description() }

// SetStrategy switches to the named strategy and restarts the instability
// cycle. Unknown names are ignored.
func (c *Controller) SetStrategy(name string) {
	s, err := ParseStrategy(name)
	if err != nil {
		logrus.Debugf("ignoring strategy change: %v", err)
		return
	}
	c.strategy = s
	c.cycle.Reset()
	logrus.Infof("controller strategy set to %s", s)
}

// CycleStrategy advances to the next strategy in fixed order and returns it.
func (c *Controller) CycleStrategy() Strategy {
	old := c.strategy
	c.strategy = c.strategy.next()
	c.cycle.Reset()
	logrus.Infof("controller strategy changed: %s → %s", old, c.strategy)
	return c.strategy
}

// Enabled reports whether OptimizeStep acts.
func (c *Controller) Enabled() bool { return c.enabled }

// SetEnabled turns the controller on or off.
func (c *Controller) SetEnabled(on bool) { c.enabled = on }

// ToggleOptimization flips the enabled flag and returns the new state.
func (c *Controller) ToggleOptimization() bool {
	c.enabled = !c.enabled
	logrus.Infof("controller enabled=%v (strategy %s)", c.enabled, c.strategy)
	return c.enabled
}

// PhaseCounter returns the instability cycle position.
func (c *Controller) PhaseCounter() int { return c.cycle.Counter() }

// Ticks returns the number of OptimizeStep calls that passed the
// enabled and window gates.
func (c *Controller) Ticks() int64 { return c.ticks }

// OptimizeStep runs one control tick. It does nothing while disabled or
// until the utilization history holds MeasurementWindow samples.
func (c *Controller) OptimizeStep() {
	if !c.enabled {
		return
	}
	hist := c.plant.UtilizationHistory()
	if hist.Len() < c.cfg.MeasurementWindow {
		return
	}
	c.ticks++

	recentUtil := hist.WindowMean(c.cfg.MeasurementWindow)
	rho := c.plant.ArrivalRate() / c.plant.ServiceRate()

	switch c.strategy {
	case StrategyArrivalOnly:
		c.optimizeArrivalOnly(recentUtil)
	case StrategyServiceOnly:
		c.optimizeServiceOnly(recentUtil)
	case StrategyBalanced:
		c.optimizeBalanced(recentUtil, rho)
	case StrategyDemonstrateInstability:
		c.demonstrateInstability(recentUtil, rho)
	}
}

// utilError returns target - recent and whether it exceeds the tolerance.
func (c *Controller) utilError(recentUtil float64) (float64, bool) {
	e := c.cfg.TargetUtilization - recentUtil
	return e, math.Abs(e) > c.cfg.Tolerance
}

func (c *Controller) optimizeArrivalOnly(recentUtil float64) {
	e, act := c.utilError(recentUtil)
	if !act {
		return
	}
	lambda := c.plant.ArrivalRate()
	if e > 0 {
		c.setArrival(min(c.cfg.MaxArrivalRate, lambda+c.cfg.AdjustmentRate), recentUtil, "below target")
	} else {
		c.setArrival(max(c.cfg.MinArrivalRate, lambda-c.cfg.AdjustmentRate), recentUtil, "above target")
	}
}

// optimizeServiceOnly lowers μ in half-steps while utilization is below
// target. The floor is λ/target (never below MinServiceRate), so μ approaches
// the target service rate from above and is not pushed down to MinServiceRate.
func (c *Controller) optimizeServiceOnly(recentUtil float64) {
	e, act := c.utilError(recentUtil)
	if !act {
		return
	}
	mu := c.plant.ServiceRate()
	if e > 0 {
		// approach λ/target from above by half-steps, never past it or the floor
		floor := max(c.plant.ArrivalRate()/c.cfg.TargetUtilization, c.cfg.MinServiceRate)
		if mu > floor {
			c.setService(max(floor, mu-c.cfg.AdjustmentRate/2), recentUtil, "below target")
		}
	} else {
		c.setService(mu+c.cfg.AdjustmentRate, recentUtil, "above target")
	}
}

func (c *Controller) optimizeBalanced(recentUtil, rho float64) {
	e, act := c.utilError(recentUtil)
	if !act {
		return
	}
	if e <= 0 {
		c.setService(c.plant.ServiceRate()+c.cfg.AdjustmentRate, recentUtil, "above target")
		return
	}
	lambda := c.plant.ArrivalRate()
	if rho < 0.98 {
		lambda += c.cfg.AdjustmentRate / 2
		c.setArrival(lambda, recentUtil, "below target")
		c.setService(lambda+0.01, recentUtil, "track λ")
	} else {
		lambda += c.cfg.AdjustmentRate / 10
		c.setArrival(lambda, recentUtil, "near ρ=1")
		c.setService(lambda+0.005, recentUtil, "track λ")
	}
}

func (c *Controller) demonstrateInstability(recentUtil, rho float64) {
	switch c.cycle.Advance() {
	case PhaseRamp:
		if rho < InstabilityRhoHigh {
			c.setArrival(c.plant.ArrivalRate()+RampStep, recentUtil, "ramp")
		}
	case PhaseRecover:
		if rho > InstabilityRhoLow {
			c.setArrival(c.plant.ArrivalRate()-RecoverStep, recentUtil, "recover")
		}
	case PhaseReset:
		logrus.Debugf("instability demonstration cycle restarted")
	}
}

func (c *Controller) setArrival(v, recentUtil float64, reason string) {
	old := c.plant.ArrivalRate()
	if v == old {
		return
	}
	if err := c.plant.SetArrivalRate(v); err != nil {
		logrus.Warnf("controller: %v", err)
		return
	}
	c.record(trace.ParamArrivalRate, old, v, recentUtil, reason)
}

func (c *Controller) setService(v, recentUtil float64, reason string) {
	old := c.plant.ServiceRate()
	if v == old {
		return
	}
	if err := c.plant.SetServiceRate(v); err != nil {
		logrus.Warnf("controller: %v", err)
		return
	}
	c.record(trace.ParamServiceRate, old, v, recentUtil, reason)
}

func (c *Controller) record(p trace.Parameter, old, v, recentUtil float64, reason string) {
	logrus.Debugf("[tick %d] %s %s %.4f → %.4f (util %.3f, %s)", c.ticks, c.strategy, p, old, v, recentUtil, reason)
	c.trace.RecordAdjustment(trace.AdjustmentRecord{
		Tick:       c.ticks,
		Clock:      c.plant.CurrentTime(),
		Strategy:   string(c.strategy),
		Parameter:  p,
		Old:        old,
		New:        v,
		RecentUtil: recentUtil,
		Reason:     reason,
	})
}
