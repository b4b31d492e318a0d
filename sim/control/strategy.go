package control

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy selects how the controller moves λ and μ.
type Strategy string

const (
	// StrategyArrivalOnly adjusts λ only; μ stays fixed.
	StrategyArrivalOnly Strategy = "arrival-only"
	// StrategyServiceOnly adjusts μ only; λ stays fixed.
	StrategyServiceOnly Strategy = "service-only"
	// StrategyBalanced moves λ up while keeping μ just above it.
	StrategyBalanced Strategy = "balanced"
	// StrategyDemonstrateInstability ignores the target and cycles ρ above
	// and below 1 to show queue explosion and recovery.
	StrategyDemonstrateInstability Strategy = "demonstrate-instability"
)

// strategyOrder is the fixed order used by CycleStrategy.
var strategyOrder = []Strategy{
	StrategyArrivalOnly,
	StrategyServiceOnly,
	StrategyBalanced,
	StrategyDemonstrateInstability,
}

var strategyDescriptions = map[Strategy]string{
	StrategyArrivalOnly:            "Adjust λ only (μ fixed) - Show instability when λ≥μ",
	StrategyServiceOnly:            "Adjust μ only (λ fixed) - Show high service rates needed",
	StrategyBalanced:               "Adjust both λ,μ - Attempt stable ρ=1",
	StrategyDemonstrateInstability: "Deliberately show ρ>1 queue explosion",
}

// Strategies returns every strategy in cycle order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategyOrder))
	copy(out, strategyOrder)
	return out
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if _, ok := strategyDescriptions[s]; !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
	}
	return s, nil
}

// Description returns a human-readable summary of the strategy's goal.
func (s Strategy) Description() string {
	if d, ok := strategyDescriptions[s]; ok {
		return d
	}
	return "Unknown strategy"
}

// next returns the strategy after s in cycle order.
func (s Strategy) next() Strategy {
	for i, candidate := range strategyOrder {
		if candidate == s {
			return strategyOrder[(i+1)%len(strategyOrder)]
		}
	}
	return strategyOrder[0]
}
