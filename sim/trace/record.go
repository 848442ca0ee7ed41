// Package trace provides transition-trace recording for thread scheduling analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "fmt"

// TransitionRecord captures a single thread state change.
// From and To are thread status names; ResourceID is the resource the thread
// is blocked on after the transition, if any.
type TransitionRecord struct {
	Tick       int64
	ThreadID   string
	ThreadName string
	From       string
	To         string
	ResourceID string
	Reason     string
}

// Kind returns the "from->to" label used to group records.
func (r TransitionRecord) Kind() string {
	return r.From + "->" + r.To
}

func (r TransitionRecord) String() string {
	s := fmt.Sprintf("[tick %d] %s: %s", r.Tick, r.ThreadName, r.Kind())
	if r.Reason != "" {
		s += " (" + r.Reason + ")"
	}
	return s
}
