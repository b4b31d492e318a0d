package control

// Phase is one stage of the instability demonstration.
type Phase int

const (
	// PhaseRamp pushes λ up until ρ reaches InstabilityRhoHigh.
	PhaseRamp Phase = iota
	// PhaseRecover pulls λ down until ρ falls to InstabilityRhoLow.
	PhaseRecover
	// PhaseReset makes no change and restarts the cycle.
	PhaseReset
)

const (
	// RampEnd is the counter value at which PhaseRamp gives way to PhaseRecover.
	// The counter is incremented before it is checked, so a cycle ramps for
	// RampEnd-1 calls.
	RampEnd = 200
	// RecoverEnd is the counter value at which the cycle resets.
	RecoverEnd = 400
	// CycleLength is the number of calls in one full cycle, including the reset call.
	CycleLength = RecoverEnd

	// InstabilityRhoHigh is the ρ the ramp phase pushes towards.
	InstabilityRhoHigh = 1.2
	// InstabilityRhoLow is the ρ the recover phase pulls back to.
	InstabilityRhoLow = 0.8
	// RampStep is the λ increment per ramp call.
	RampStep = 0.005
	// RecoverStep is the λ decrement per recover call.
	RecoverStep = 0.01
)

func (p Phase) String() string {
	switch p {
	case PhaseRamp:
		return "ramp"
	case PhaseRecover:
		return "recover"
	case PhaseReset:
		return "reset"
	default:
		return "unknown"
	}
}

// InstabilityCycle is the phase state machine behind the
// demonstrate-instability strategy. The zero value starts at PhaseRamp.
type InstabilityCycle struct {
	counter int
}

// Advance moves the machine forward and returns the phase for this call.
// Calls 1..199 of a cycle ramp, 200..399 recover and call 400 resets.
func (ic *InstabilityCycle) Advance() Phase {
	ic.counter++
	switch {
	case ic.counter < RampEnd:
		return PhaseRamp
	case ic.counter < RecoverEnd:
		return PhaseRecover
	default:
		ic.counter = 0
		return PhaseReset
	}
}

// Counter returns the position within the current cycle.
func (ic *InstabilityCycle) Counter() int { return ic.counter }

// Reset returns the machine to the start of PhaseRamp.
func (ic *InstabilityCycle) Reset() { ic.counter = 0 }
