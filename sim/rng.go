package sim

import (
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulators with the same SimulationKey, scenario and operation sequence
// MUST produce identical thread and resource states.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === RandomSource ===

// RandomSource is the uniform [0,1) generator behind every stochastic decision:
// policy admission, I/O requests and completions, and telemetry perturbation.
// *rand.Rand satisfies it. Tests inject scripted sources to force branches.
//
// Thread-safety: NOT required. The Simulator only draws while holding its lock.
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a deterministically-seeded source for key.
// Never returns nil.
func NewRandomSource(key SimulationKey) RandomSource {
	return rand.New(rand.NewSource(int64(key)))
}

// randIntn draws an integer in [0, n) from rnd. Returns 0 when n <= 0.
func randIntn(rnd RandomSource, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(rnd.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// randRange draws an integer in [lo, lo+width) and returns it as a float64.
// Matches the telemetry perturbation style: floor(r*width) + lo.
func randRange(rnd RandomSource, lo, width int) float64 {
	return float64(lo + randIntn(rnd, width))
}
