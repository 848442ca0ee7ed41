package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// RunResults is the JSON summary of a headless run.
type RunResults struct {
	Model           ThreadModel          `json:"model"`
	Seed            int64                `json:"seed"`
	Ticks           int64                `json:"ticks"`
	SpeedMs         int64                `json:"speed_ms"`
	Utilization     float64              `json:"cpu_utilization"`
	ContextSwitches int                  `json:"context_switches"`
	ThreadCount     int                  `json:"thread_count"`
	StatusCounts    map[ThreadStatus]int `json:"status_counts"`
	Threads         []ThreadResult       `json:"threads"`
	Resources       []ResourceResult     `json:"resources"`
	WallClock       string               `json:"wall_clock"`
}

// ThreadResult is the per-thread section of RunResults.
type ThreadResult struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Priority        int          `json:"priority"`
	Status          ThreadStatus `json:"status"`
	ExecutionTime   int64        `json:"execution_time_ms"`
	RemainingTime   int64        `json:"remaining_time_ms"`
	WaitingFor      string       `json:"waiting_for,omitempty"`
	CPUUsage        float64      `json:"cpu_usage"`
	MemoryUsage     float64      `json:"memory_usage_mb"`
	IOOperations    int          `json:"io_operations"`
	ContextSwitches int          `json:"context_switches"`
}

// ResourceResult is the per-resource section of RunResults.
type ResourceResult struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    ResourceType `json:"type"`
	InUseBy string       `json:"in_use_by,omitempty"`
}

// NewRunResults builds the JSON summary from a snapshot.
func NewRunResults(snap Snapshot, key SimulationKey, started time.Time) *RunResults {
	r := &RunResults{
		Model:           snap.Model,
		Seed:            int64(key),
		Ticks:           snap.Tick,
		SpeedMs:         snap.Speed,
		Utilization:     snap.Metrics.Utilization,
		ContextSwitches: snap.Metrics.ContextSwitches,
		ThreadCount:     snap.Metrics.ThreadCount,
		StatusCounts:    make(map[ThreadStatus]int),
		Threads:         make([]ThreadResult, 0, len(snap.Threads)),
		Resources:       make([]ResourceResult, 0, len(snap.Resources)),
		WallClock:       time.Since(started).Round(time.Millisecond).String(),
	}
	for _, t := range snap.Threads {
		r.StatusCounts[t.Status]++
		r.Threads = append(r.Threads, ThreadResult{
			ID:              t.ID,
			Name:            t.Name,
			Priority:        t.Priority,
			Status:          t.Status,
			ExecutionTime:   t.ExecutionTime,
			RemainingTime:   t.RemainingTime,
			WaitingFor:      t.WaitingFor,
			CPUUsage:        t.CPUUsage,
			MemoryUsage:     t.MemoryUsage,
			IOOperations:    t.IOOperations,
			ContextSwitches: t.ContextSwitches,
		})
	}
	for _, res := range snap.Resources {
		r.Resources = append(r.Resources, ResourceResult{ID: res.ID, Name: res.Name, Type: res.Type, InUseBy: res.InUseBy})
	}
	return r
}

// SaveResults writes the results as indented JSON to path.
func (r *RunResults) SaveResults(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote results to '%s'", path)
	return nil
}
