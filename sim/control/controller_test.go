package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mm1-sim/mm1-sim/sim"
	"github.com/mm1-sim/mm1-sim/sim/trace"
)

// === Construction and configuration ===

func TestNewController_DefaultState(t *testing.T) {
	// GIVEN a valid plant and default config
	p := newFakePlant(1, 2, 0.5, 100)

	// WHEN a controller is created
	c, err := NewController(p, DefaultConfig())

	// THEN it starts disabled with arrival-only
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	assert.Equal(t, StrategyArrivalOnly, c.Strategy())
	assert.Equal(t, 0, c.PhaseCounter())
}

func TestNewController_InvalidConfig_ReturnsError(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.TargetUtilization = 0 }},
		{"target above one", func(c *Config) { c.TargetUtilization = 1.5 }},
		{"zero step", func(c *Config) { c.AdjustmentRate = 0 }},
		{"zero window", func(c *Config) { c.MeasurementWindow = 0 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -0.1 }},
		{"inverted arrival bounds", func(c *Config) { c.MaxArrivalRate = 0.05 }},
		{"zero service floor", func(c *Config) { c.MinServiceRate = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewController(newFakePlant(1, 2, 0.5, 100), cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestNewController_WindowLargerThanHistory_ReturnsError(t *testing.T) {
	// GIVEN an engine whose history keeps only the minimum number of samples
	e, err := sim.NewEngine(2, 3, sim.WithSeed(1), sim.WithHistoryCapacity(sim.MinHistoryCapacity))
	require.NoError(t, err)

	// WHEN the window cannot fit in that history
	cfg := DefaultConfig()
	cfg.MeasurementWindow = sim.MinHistoryCapacity + 1
	_, err = NewController(e, cfg)

	// THEN construction fails instead of building a controller that never acts
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.MeasurementWindow = sim.MinHistoryCapacity
	_, err = NewController(e, cfg)
	assert.NoError(t, err)
}

func TestNewController_NilPlant_ReturnsError(t *testing.T) {
	_, err := NewController(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// === Strategy selection ===

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("arrival_rate")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSetStrategy_UnknownName_IsNoOp(t *testing.T) {
	// GIVEN a controller on service-only
	c, _ := NewController(newFakePlant(1, 2, 0.5, 100), DefaultConfig())
	c.SetStrategy(string(StrategyServiceOnly))

	// WHEN an unknown name is set
	c.SetStrategy("warp-speed")

	// THEN the strategy is unchanged
	assert.Equal(t, StrategyServiceOnly, c.Strategy())
}

func TestCycleStrategy_FourCalls_ReturnsToStart(t *testing.T) {
	// GIVEN a controller on arrival-only
	c, _ := NewController(newFakePlant(1, 2, 0.5, 100), DefaultConfig())

	// WHEN CycleStrategy is called four times
	got := make([]Strategy, 0, 4)
	for i := 0; i < 4; i++ {
		got = append(got, c.CycleStrategy())
	}

	// THEN it walks the fixed order and lands back on arrival-only
	want := []Strategy{StrategyServiceOnly, StrategyBalanced, StrategyDemonstrateInstability, StrategyArrivalOnly}
	assert.Equal(t, want, got)
}

func TestCycleStrategy_ResetsPhaseCounter(t *testing.T) {
	p := newFakePlant(1, 2, 0.5, 100)
	c := enabledController(p, StrategyDemonstrateInstability, 1.0)
	for i := 0; i < 10; i++ {
		c.OptimizeStep()
	}
	require.Equal(t, 10, c.PhaseCounter())

	c.CycleStrategy()

	assert.Equal(t, 0, c.PhaseCounter())
}

func TestStrategyInfo_DescribesActiveStrategy(t *testing.T) {
	c, _ := NewController(newFakePlant(1, 2, 0.5, 100), DefaultConfig())
	assert.Contains(t, c.StrategyInfo(), "λ only")
	c.SetStrategy(string(StrategyDemonstrateInstability))
	assert.Contains(t, c.StrategyInfo(), "queue explosion")
	assert.Equal(t, "Unknown strategy", Strategy("nope").Description())
}

func TestToggleOptimization_FlipsAndReturnsState(t *testing.T) {
	c, _ := NewController(newFakePlant(1, 2, 0.5, 100), DefaultConfig())
	assert.True(t, c.ToggleOptimization())
	assert.True(t, c.Enabled())
	assert.False(t, c.ToggleOptimization())
	assert.False(t, c.Enabled())
}

// === Gating ===

func TestOptimizeStep_Disabled_NoChange(t *testing.T) {
	p := newFakePlant(1, 2, 0.2, 100)
	c, _ := NewController(p, DefaultConfig())

	c.OptimizeStep()

	assert.Equal(t, 1.0, p.lambda)
	assert.Equal(t, 2.0, p.mu)
	assert.Equal(t, int64(0), c.Ticks())
}

func TestOptimizeStep_ShortHistory_NoChange(t *testing.T) {
	// GIVEN 99 utilization samples, one short of the window
	p := newFakePlant(1, 2, 0.2, 99)
	c := enabledController(p, StrategyArrivalOnly, 1.0)

	c.OptimizeStep()

	assert.Equal(t, 1.0, p.lambda)
	assert.Equal(t, int64(0), c.Ticks())
}

// === arrival-only ===

func TestArrivalOnly(t *testing.T) {
	tests := []struct {
		name       string
		lambda     float64
		util       float64
		target     float64
		wantLambda float64
	}{
		{"below target raises λ", 1.0, 0.5, 1.0, 1.01},
		{"within tolerance holds", 1.0, 0.99, 1.0, 1.0},
		{"above target lowers λ", 1.0, 0.9, 0.5, 0.99},
		{"ceiling clamps at 10", 9.995, 0.5, 1.0, 10.0},
		{"floor clamps at 0.1", 0.105, 0.9, 0.5, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlant(tt.lambda, 20, tt.util, 100)
			c := enabledController(p, StrategyArrivalOnly, tt.target)

			c.OptimizeStep()

			assert.InDelta(t, tt.wantLambda, p.lambda, 1e-9)
			assert.Equal(t, 20.0, p.mu, "μ must not move")
		})
	}
}

// === service-only ===

func TestServiceOnly(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
		mu     float64
		util   float64
		target float64
		wantMu float64
	}{
		{"below target lowers μ by half-step", 2.0, 4.0, 0.5, 1.0, 3.995},
		{"does not pass λ/target", 2.0, 2.003, 0.5, 1.0, 2.0},
		{"already at λ/target holds", 2.0, 2.0, 0.5, 1.0, 2.0},
		{"floor at 0.5", 0.2, 0.502, 0.1, 1.0, 0.5},
		{"above target raises μ", 2.0, 3.0, 0.9, 0.5, 3.01},
		{"within tolerance holds", 2.0, 3.0, 0.99, 1.0, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlant(tt.lambda, tt.mu, tt.util, 100)
			c := enabledController(p, StrategyServiceOnly, tt.target)

			c.OptimizeStep()

			assert.InDelta(t, tt.wantMu, p.mu, 1e-9)
			assert.Equal(t, tt.lambda, p.lambda, "λ must not move")
		})
	}
}

// === balanced ===

func TestBalanced(t *testing.T) {
	tests := []struct {
		name       string
		lambda, mu float64
		util       float64
		target     float64
		wantLambda float64
		wantMu     float64
	}{
		{"far from ρ=1 half-step", 1.0, 2.0, 0.5, 1.0, 1.005, 1.015},
		{"near ρ=1 tenth-step", 1.0, 1.01, 0.5, 1.0, 1.001, 1.006},
		{"above target widens μ", 1.0, 2.0, 0.9, 0.5, 1.0, 2.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlant(tt.lambda, tt.mu, tt.util, 100)
			c := enabledController(p, StrategyBalanced, tt.target)

			c.OptimizeStep()

			assert.InDelta(t, tt.wantLambda, p.lambda, 1e-9)
			assert.InDelta(t, tt.wantMu, p.mu, 1e-9)
		})
	}
}

// === demonstrate-instability ===

func TestDemonstrateInstability_RampPhase_RaisesLambdaUntilRhoHigh(t *testing.T) {
	// GIVEN ρ = 0.5 and a utilization already at target
	p := newFakePlant(1.0, 2.0, 1.0, 100)
	c := enabledController(p, StrategyDemonstrateInstability, 1.0)

	// WHEN one tick runs
	c.OptimizeStep()

	// THEN λ rises by the ramp step regardless of the target error
	assert.InDelta(t, 1.005, p.lambda, 1e-9)
	assert.Equal(t, 1, c.PhaseCounter())
}

func TestDemonstrateInstability_RampPhase_HoldsAboveRhoHigh(t *testing.T) {
	p := newFakePlant(2.5, 2.0, 1.0, 100) // ρ = 1.25
	c := enabledController(p, StrategyDemonstrateInstability, 1.0)

	c.OptimizeStep()

	assert.Equal(t, 2.5, p.lambda)
}

func TestDemonstrateInstability_FullCycle(t *testing.T) {
	// GIVEN ρ = 1.0
	p := newFakePlant(2.0, 2.0, 1.0, 100)
	c := enabledController(p, StrategyDemonstrateInstability, 1.0)

	// WHEN a ramp phase completes
	for i := 0; i < RampEnd-1; i++ {
		c.OptimizeStep()
	}
	// THEN ρ reached the high bound and stopped there
	assert.GreaterOrEqual(t, p.lambda/p.mu, InstabilityRhoHigh-1e-9)
	assert.Less(t, p.lambda/p.mu, InstabilityRhoHigh+RampStep/p.mu+1e-9)
	assert.Equal(t, RampEnd-1, c.PhaseCounter())

	// WHEN call 200 runs
	lambda := p.lambda
	c.OptimizeStep()
	// THEN it already belongs to the recover phase
	assert.InDelta(t, lambda-RecoverStep, p.lambda, 1e-9)

	// WHEN the rest of the recover phase completes
	for i := RampEnd + 1; i < RecoverEnd; i++ {
		c.OptimizeStep()
	}
	// THEN ρ fell to the low bound
	assert.LessOrEqual(t, p.lambda/p.mu, InstabilityRhoLow+1e-9)
	assert.Equal(t, RecoverEnd-1, c.PhaseCounter())

	// WHEN call 400 runs
	lambda = p.lambda
	c.OptimizeStep()
	// THEN nothing changes and the cycle restarts
	assert.Equal(t, lambda, p.lambda)
	assert.Equal(t, 0, c.PhaseCounter())

	// AND call 401 ramps again
	c.OptimizeStep()
	assert.InDelta(t, lambda+RampStep, p.lambda, 1e-9)
}

func TestInstabilityCycle_PhaseSequence(t *testing.T) {
	var ic InstabilityCycle
	counts := map[Phase]int{}
	for i := 0; i < CycleLength; i++ {
		counts[ic.Advance()]++
	}
	assert.Equal(t, 199, counts[PhaseRamp])
	assert.Equal(t, 200, counts[PhaseRecover])
	assert.Equal(t, 1, counts[PhaseReset])
	assert.Equal(t, 0, ic.Counter())
	assert.Equal(t, PhaseRamp, ic.Advance(), "cycle must wrap to ramp")
}

func TestInstabilityCycle_MatchesIncrementThenCheckCounter(t *testing.T) {
	// GIVEN a counter that is incremented before it is compared
	phase := 0
	reference := func() Phase {
		phase++
		switch {
		case phase < 200:
			return PhaseRamp
		case phase < 400:
			return PhaseRecover
		default:
			phase = 0
			return PhaseReset
		}
	}

	// WHEN both run for three cycles
	var ic InstabilityCycle
	for call := 1; call <= 1200; call++ {
		// THEN every call lands in the same phase
		require.Equal(t, reference(), ic.Advance(), "call %d", call)
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "ramp", PhaseRamp.String())
	assert.Equal(t, "recover", PhaseRecover.String())
	assert.Equal(t, "reset", PhaseReset.String())
	assert.Equal(t, "unknown", Phase(9).String())
}

// === Trace ===

func TestOptimizeStep_RecordsAdjustments(t *testing.T) {
	// GIVEN a balanced controller with tracing enabled
	p := newFakePlant(1.0, 2.0, 0.5, 100)
	p.clock = 42
	c := enabledController(p, StrategyBalanced, 1.0)
	at := trace.NewAdjustmentTrace(trace.TraceLevelAdjustments)
	c.SetTrace(at)

	// WHEN one tick runs
	c.OptimizeStep()

	// THEN both the λ and the μ change are recorded
	require.Len(t, at.Adjustments, 2)
	assert.Equal(t, trace.ParamArrivalRate, at.Adjustments[0].Parameter)
	assert.Equal(t, trace.ParamServiceRate, at.Adjustments[1].Parameter)
	assert.Equal(t, "balanced", at.Adjustments[0].Strategy)
	assert.Equal(t, int64(1), at.Adjustments[0].Tick)
	assert.Equal(t, 42.0, at.Adjustments[0].Clock)
	assert.InDelta(t, 0.5, at.Adjustments[0].RecentUtil, 1e-9)
}

// === Against a real engine ===

func TestServiceOnly_Engine_ConvergesToLambdaFromAbove(t *testing.T) {
	// GIVEN λ = 2.0, μ = 4.0, target 1.0, service-only
	e, err := sim.NewEngine(2.0, 4.0, sim.WithSeed(42))
	require.NoError(t, err)
	c := enabledController(e, StrategyServiceOnly, 1.0)

	// WHEN 2000 step+tick rounds run
	for i := 0; i < 2000; i++ {
		e.Step()
		c.OptimizeStep()
		// THEN μ never drops below λ/target or the 0.5 floor
		require.GreaterOrEqual(t, e.ServiceRate(), 2.0-1e-9)
		require.GreaterOrEqual(t, e.ServiceRate(), 0.5)
	}

	// AND μ has moved from 4.0 down close to λ
	assert.InDelta(t, 2.0, e.ServiceRate(), 0.25)
	assert.Equal(t, 2.0, e.ArrivalRate(), "λ must stay fixed")
}

func TestArrivalOnly_Engine_RespectsBounds(t *testing.T) {
	e, err := sim.NewEngine(1.0, 1.5, sim.WithSeed(7))
	require.NoError(t, err)
	c := enabledController(e, StrategyArrivalOnly, 1.0)

	for i := 0; i < 3000; i++ {
		e.Step()
		c.OptimizeStep()
		require.GreaterOrEqual(t, e.ArrivalRate(), 0.1)
		require.LessOrEqual(t, e.ArrivalRate(), 10.0)
	}
	assert.Equal(t, 1.5, e.ServiceRate(), "μ must stay fixed")
	assert.Greater(t, e.ArrivalRate(), 1.0, "λ must have been pushed up towards full utilization")
}
