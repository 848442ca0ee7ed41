// Package sim provides the tick-driven engine of the threading-model simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - thread.go: Thread lifecycle (ready → running → waiting → terminated) and invariants
//   - tick.go: One tick of per-thread, policy-driven transitions and diff-based logging
//   - simulator.go: The state owner and every public operation
//
// # Architecture
//
// A single Simulator owns the thread table, the resource registry, derived CPU
// metrics and the event log behind one mutex. Ticks come from Step (manual) or
// from the continuous driver in driver.go; either way a tick runs to completion
// before the next operation observes state.
//
// Sub-packages:
//   - sim/trace/: Transition trace recording and summaries
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - SchedulingPolicy: per-model I/O probabilities, admission rule and exclusivity
//   - RandomSource: the uniform generator behind every stochastic decision
//
// The initial state is a Scenario, by default the embedded seed.yaml.
package sim
