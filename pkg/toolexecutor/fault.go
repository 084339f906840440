package toolexecutor

import (
	"math/rand/v2"
	"sync"
)

// FaultModel decides what an unreliable tool actually returns on one attempt.
type FaultModel interface {
	Perturb(tool string, attempt int, correct float64) float64
}

// FaultFunc adapts a function to FaultModel.
type FaultFunc func(tool string, attempt int, correct float64) float64

// Perturb calls f.
func (f FaultFunc) Perturb(tool string, attempt int, correct float64) float64 {
	return f(tool, attempt, correct)
}

// NoFaults always returns the correct value.
type NoFaults struct{}

// Perturb returns correct unchanged.
func (NoFaults) Perturb(_ string, _ int, correct float64) float64 {
	return correct
}

// RandomFaults returns a random integer in [-100, 100] with probability Rate.
type RandomFaults struct {
	rate float64
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewRandomFaults creates a fault model. A zero seed draws a random one.
func NewRandomFaults(rate float64, seed uint64) *RandomFaults {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomFaults{
		rate: rate,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Perturb implements FaultModel.
func (f *RandomFaults) Perturb(_ string, _ int, correct float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rng.Float64() < f.rate {
		return float64(f.rng.IntN(201) - 100)
	}
	return correct
}
