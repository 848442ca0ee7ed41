// Defines the Thread struct that models a single simulated thread.
// Tracks lifecycle state, the remaining execution budget and informational telemetry.

package sim

import (
	"fmt"
	"time"
)

// ThreadStatus represents the lifecycle state of a thread.
type ThreadStatus string

const (
	StatusReady      ThreadStatus = "ready"
	StatusRunning    ThreadStatus = "running"
	StatusWaiting    ThreadStatus = "waiting"
	StatusTerminated ThreadStatus = "terminated"
)

// Priority bounds. Higher = more eager to run under one-to-one.
const (
	MinPriority = 1
	MaxPriority = 10
)

var validThreadStatuses = map[ThreadStatus]bool{
	StatusReady:      true,
	StatusRunning:    true,
	StatusWaiting:    true,
	StatusTerminated: true,
}

// IsValidThreadStatus returns true if s names a known thread status.
func IsValidThreadStatus(s string) bool {
	return validThreadStatuses[ThreadStatus(s)]
}

// Thread is one simulated thread.
//
// Invariants maintained by the Simulator:
//   - RemainingTime <= ExecutionTime
//   - RemainingTime == 0 iff Status == StatusTerminated
//   - WaitingFor != "" implies Status == StatusWaiting
//
// A thread paused explicitly is Waiting with an empty WaitingFor.
type Thread struct {
	ID        string
	Name      string
	Priority  int
	Status    ThreadStatus
	CreatedAt time.Time

	ExecutionTime int64  // total budget in simulated milliseconds
	RemainingTime int64  // simulated milliseconds left; only decreases while Running
	WaitingFor    string // resource id this thread is blocked on (empty = none)

	// Telemetry is perturbed randomly, not derived.
	CPUUsage        float64 // percent
	MemoryUsage     float64 // MB
	IOOperations    int
	ContextSwitches int
}

// ThreadUpdate carries the editable fields of a thread. Nil fields are left unchanged.
type ThreadUpdate struct {
	Name          *string
	Priority      *int
	ExecutionTime *int64
}

// WaitReason renders why a thread is waiting from its structured state.
// Returns an empty string for threads that are not waiting.
func (t Thread) WaitReason() string {
	if t.Status != StatusWaiting {
		return ""
	}
	if t.WaitingFor == "" {
		return "paused"
	}
	return "waiting for " + t.WaitingFor
}

// Blocked reports whether the thread is waiting on a resource (as opposed to paused).
func (t Thread) Blocked() bool {
	return t.Status == StatusWaiting && t.WaitingFor != ""
}

// This method returns a human-readable string representation of a Thread.
func (t Thread) String() string {
	return fmt.Sprintf("Thread: (ID: %s, Name: %s, Status: %s, Priority: %d, Remaining: %d/%d)",
		t.ID, t.Name, t.Status, t.Priority, t.RemainingTime, t.ExecutionTime)
}

// countStatus returns how many threads are in status s.
func countStatus(threads []*Thread, s ThreadStatus) int {
	n := 0
	for _, t := range threads {
		if t.Status == s {
			n++
		}
	}
	return n
}
