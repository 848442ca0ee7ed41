package trace

import (
	"fmt"
	"io"
	"sort"
)

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	Completions      int            // transitions into "terminated"
	Admissions       int            // ready -> running
	IOBlocks         int            // transitions into "waiting" with a resource
	KindDistribution map[string]int // "from->to" -> count
	PerThread        map[string]int // thread name -> transition count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindDistribution: make(map[string]int),
		PerThread:        make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTransitions = len(st.Transitions)
	for _, r := range st.Transitions {
		summary.KindDistribution[r.Kind()]++
		summary.PerThread[r.ThreadName]++
		switch {
		case r.To == "terminated":
			summary.Completions++
		case r.From == "ready" && r.To == "running":
			summary.Admissions++
		case r.To == "waiting" && r.ResourceID != "":
			summary.IOBlocks++
		}
	}
	return summary
}

// Print writes the summary with kinds in sorted order.
func (s *TraceSummary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Transition Trace ===")
	fmt.Fprintf(w, "Transitions          : %d\n", s.TotalTransitions)
	fmt.Fprintf(w, "Admissions           : %d\n", s.Admissions)
	fmt.Fprintf(w, "I/O Blocks           : %d\n", s.IOBlocks)
	fmt.Fprintf(w, "Completions          : %d\n", s.Completions)
	kinds := make([]string, 0, len(s.KindDistribution))
	for k := range s.KindDistribution {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-22s %d\n", k, s.KindDistribution[k])
	}
}
