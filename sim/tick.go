package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Telemetry bounds applied while a thread runs.
const (
	minCPUUsage    = 10
	maxCPUUsage    = 95
	minMemoryUsage = 5
)

// Step advances the simulation by exactly one tick. It is refused while the
// continuous driver is active.
func (sim *Simulator) Step() error {
	if sim.Running() {
		return fmt.Errorf("cannot step: %w", ErrSimulationRunning)
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.tickLocked()
	return nil
}

// tickLocked runs one tick to completion:
//  1. each thread takes exactly one status-dependent transition, in table order
//  2. metrics are recomputed from the thread table
//  3. notable transitions are logged by diffing against the pre-tick snapshot
func (sim *Simulator) tickLocked() {
	sim.tickCount++
	before := make(map[string]ThreadStatus, len(sim.threads))
	for _, t := range sim.threads {
		before[t.ID] = t.Status
	}
	runningBefore := countStatus(sim.threads, StatusRunning)

	for _, t := range sim.threads {
		// A waiter woken earlier in this tick has already taken its transition.
		if t.Status != before[t.ID] {
			continue
		}
		switch t.Status {
		case StatusRunning:
			sim.advanceRunning(t)
		case StatusWaiting:
			if t.WaitingFor != "" {
				sim.advanceWaiting(t)
			}
		case StatusReady:
			sim.advanceReady(t)
		}
	}

	sim.metrics = computeMetrics(sim.threads)
	sim.logTransitions(before, runningBefore)
	logrus.Debugf("[tick %07d] model=%s utilization=%.1f switches=%d",
		sim.tickCount, sim.policy.Model(), sim.metrics.Utilization, sim.metrics.ContextSwitches)
}

// advanceRunning consumes one tick of the thread's budget, then either
// completes it, blocks it on a freshly acquired resource, or jitters telemetry.
func (sim *Simulator) advanceRunning(t *Thread) {
	t.RemainingTime = max(0, t.RemainingTime-sim.speed)
	if t.RemainingTime == 0 {
		t.Status = StatusTerminated
		t.CPUUsage = 0
		sim.recordTransition(t, StatusRunning, "completed")
		sim.freeHeldBy(t.ID)
		return
	}

	if sim.rnd.Float64() < sim.policy.IOChance() {
		if avail := sim.availableResources(); len(avail) > 0 {
			r := avail[randIntn(sim.rnd, len(avail))]
			r.InUseBy = t.ID
			t.Status = StatusWaiting
			t.WaitingFor = r.ID
			cpu := t.CPUUsage
			if cpu == 0 {
				cpu = 20
			}
			t.CPUUsage = float64(int(cpu / 3))
			t.IOOperations++
			sim.recordTransition(t, StatusRunning, "i/o on "+r.ID)
			return
		}
	}

	cpu := t.CPUUsage
	if cpu == 0 {
		cpu = 30
	}
	t.CPUUsage = min(maxCPUUsage, max(minCPUUsage, cpu+randRange(sim.rnd, -4, 10)))
	mem := t.MemoryUsage
	if mem == 0 {
		mem = 50
	}
	t.MemoryUsage = max(minMemoryUsage, mem+randRange(sim.rnd, -2, 6))
}

// advanceWaiting may complete the I/O of a blocked thread. A thread queued
// behind another holder stays blocked until that holder releases.
func (sim *Simulator) advanceWaiting(t *Thread) {
	r := sim.resourceByID(t.WaitingFor)
	if r != nil && r.InUseBy != "" && r.InUseBy != t.ID {
		return
	}
	if sim.rnd.Float64() >= sim.policy.IOCompleteChance() {
		return
	}

	t.WaitingFor = ""
	if r != nil && r.InUseBy == t.ID {
		sim.freeResource(r)
	}
	if sim.policy.Exclusive() && countStatus(sim.threads, StatusRunning) > 0 {
		t.Status = StatusReady
		sim.recordTransition(t, StatusWaiting, "i/o complete, cpu busy")
		return
	}
	sim.dispatch(t, StatusWaiting, "i/o complete")
}

// advanceReady applies the model's admission rule.
func (sim *Simulator) advanceReady(t *Thread) {
	if sim.policy.Admit(t, countStatus(sim.threads, StatusRunning), sim.rnd) {
		sim.dispatch(t, StatusReady, "admitted")
	}
}

// dispatch puts t on the CPU with a fresh CPU usage in [30, 70).
func (sim *Simulator) dispatch(t *Thread, from ThreadStatus, reason string) {
	t.Status = StatusRunning
	t.CPUUsage = randRange(sim.rnd, 30, 40)
	t.ContextSwitches++
	sim.recordTransition(t, from, reason)
}

// freeResource clears ownership and wakes waiters without logging. Used for
// releases that happen inside a tick.
func (sim *Simulator) freeResource(r *Resource) {
	r.InUseBy = ""
	sim.wakeWaiters(r.ID)
}

func (sim *Simulator) freeHeldBy(threadID string) {
	for _, r := range sim.resources {
		if r.InUseBy == threadID {
			sim.freeResource(r)
		}
	}
}

// logTransitions compares the pre-tick snapshot with the current table.
func (sim *Simulator) logTransitions(before map[string]ThreadStatus, runningBefore int) {
	for _, t := range sim.threads {
		if prev, ok := before[t.ID]; ok && prev != StatusTerminated && t.Status == StatusTerminated {
			sim.addLogLocked(fmt.Sprintf("Thread %s completed execution", t.Name))
		}
	}

	runningAfter := countStatus(sim.threads, StatusRunning)
	if runningBefore == 0 && runningAfter > 0 {
		sim.addLogLocked(fmt.Sprintf("CPU scheduling started - %d thread(s) now running", runningAfter))
	}

	// Only Waiting counts here; a single Ready thread suppresses the warning.
	waiting := countStatus(sim.threads, StatusWaiting)
	terminated := countStatus(sim.threads, StatusTerminated)
	if waiting > 0 && waiting+terminated == len(sim.threads) {
		sim.addLogLocked("WARNING: Potential deadlock detected - all threads waiting")
		logrus.Warnf("[tick %07d] all %d live threads waiting", sim.tickCount, waiting)
	}
}
