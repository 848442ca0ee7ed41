// Tracks aggregate CPU statistics derived from the thread table.

package sim

import (
	"fmt"
	"io"
)

// CPUMetrics is recomputed from the thread table every tick and never mutated
// independently of it.
type CPUMetrics struct {
	Utilization     float64 // 0-100, mean CPU usage over Running threads
	ContextSwitches int     // sum of per-thread context switch counters
	ThreadCount     int     // threads currently in the table
}

// computeMetrics derives CPUMetrics from threads.
func computeMetrics(threads []*Thread) CPUMetrics {
	var m CPUMetrics
	running := 0
	totalCPU := 0.0
	for _, t := range threads {
		m.ContextSwitches += t.ContextSwitches
		if t.Status == StatusRunning {
			running++
			totalCPU += t.CPUUsage
		}
	}
	if running > 0 {
		m.Utilization = min(100, totalCPU/float64(running))
	}
	m.ThreadCount = len(threads)
	return m
}

// Print displays the metrics along with per-status thread counts.
func (m CPUMetrics) Print(w io.Writer, threads []Thread, ticks int64) {
	counts := make(map[ThreadStatus]int)
	for _, t := range threads {
		counts[t.Status]++
	}
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Ticks                : %d\n", ticks)
	fmt.Fprintf(w, "Threads              : %d\n", m.ThreadCount)
	fmt.Fprintf(w, "CPU Utilization      : %.2f%%\n", m.Utilization)
	fmt.Fprintf(w, "Context Switches     : %d\n", m.ContextSwitches)
	fmt.Fprintf(w, "Ready/Running/Waiting/Terminated : %d/%d/%d/%d\n",
		counts[StatusReady], counts[StatusRunning], counts[StatusWaiting], counts[StatusTerminated])
}
