package sim

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/threadsim/sim/trace"
)

// scriptedSource returns vals in order, then fallback forever.
// It lets tests force specific branches of the stochastic transitions.
type scriptedSource struct {
	vals     []float64
	i        int
	fallback float64
}

func (s *scriptedSource) Float64() float64 {
	if s.i < len(s.vals) {
		v := s.vals[s.i]
		s.i++
		return v
	}
	return s.fallback
}

// never returns a source whose draws never pass any probability check.
func never() *scriptedSource { return &scriptedSource{fallback: 0.999} }

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// sequentialIDs yields prefix-1, prefix-2, ... per prefix.
func sequentialIDs() func(string) string {
	counters := make(map[string]int)
	return func(prefix string) string {
		counters[prefix]++
		return fmt.Sprintf("%s-%d", prefix, counters[prefix])
	}
}

// newTestSimulator builds a simulator over an explicit scenario with
// deterministic ids and clock.
func newTestSimulator(t *testing.T, model ThreadModel, speed int64, rnd RandomSource,
	threads []ThreadSpec, resources []ResourceSpec) *Simulator {
	t.Helper()
	s, err := NewSimulator(SimulatorConfig{
		Model:    model,
		Speed:    speed,
		Scenario: &Scenario{Threads: threads, Resources: resources},
		Random:   rnd,
		Now:      func() time.Time { return testEpoch },
		NewID:    sequentialIDs(),
	})
	require.NoError(t, err)
	return s
}

func traceTransitions() trace.TraceConfig {
	return trace.TraceConfig{Level: trace.TraceLevelTransitions}
}

func readySpec(id, name string, priority int, exec int64) ThreadSpec {
	return ThreadSpec{ID: id, Name: name, Priority: priority, Status: string(StatusReady), ExecutionTime: exec, RemainingTime: exec}
}

func runningSpec(id, name string, priority int, exec, remaining int64) ThreadSpec {
	return ThreadSpec{ID: id, Name: name, Priority: priority, Status: string(StatusRunning), ExecutionTime: exec, RemainingTime: remaining, CPUUsage: 45, MemoryUsage: 64}
}

func waitingSpec(id, name string, exec int64, waitingFor string) ThreadSpec {
	return ThreadSpec{ID: id, Name: name, Priority: 5, Status: string(StatusWaiting), ExecutionTime: exec, RemainingTime: exec, WaitingFor: waitingFor, CPUUsage: 15, MemoryUsage: 32}
}

func resourceSpec(id, name, owner string) ResourceSpec {
	return ResourceSpec{ID: id, Name: name, Type: string(ResourceFile), InUseBy: owner}
}

// assertInvariants checks the thread and resource invariants.
func assertInvariants(t *testing.T, s *Simulator) {
	t.Helper()
	snap := s.Snapshot()
	ids := make(map[string]bool, len(snap.Threads))
	for _, th := range snap.Threads {
		ids[th.ID] = true
		if th.RemainingTime > th.ExecutionTime {
			t.Errorf("tick %d: %s remaining %d > execution %d", snap.Tick, th.Name, th.RemainingTime, th.ExecutionTime)
		}
		if (th.RemainingTime == 0) != (th.Status == StatusTerminated) {
			t.Errorf("tick %d: %s remaining=%d status=%s", snap.Tick, th.Name, th.RemainingTime, th.Status)
		}
		if th.WaitingFor != "" && th.Status != StatusWaiting {
			t.Errorf("tick %d: %s waits for %s but is %s", snap.Tick, th.Name, th.WaitingFor, th.Status)
		}
	}
	for _, r := range snap.Resources {
		if r.InUseBy != "" && !ids[r.InUseBy] {
			t.Errorf("tick %d: resource %s held by unknown thread %s", snap.Tick, r.ID, r.InUseBy)
		}
	}
}

func countRunning(threads []Thread) int {
	n := 0
	for _, th := range threads {
		if th.Status == StatusRunning {
			n++
		}
	}
	return n
}

func logMessages(entries []LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func countLogs(entries []LogEntry, substr string) int {
	n := 0
	for _, e := range entries {
		if strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func mustThread(t *testing.T, s *Simulator, id string) Thread {
	t.Helper()
	th, err := s.Thread(id)
	require.NoError(t, err)
	return th
}

func resourceOwner(s *Simulator, id string) (string, bool) {
	for _, r := range s.Resources() {
		if r.ID == id {
			return r.InUseBy, true
		}
	}
	return "", false
}
