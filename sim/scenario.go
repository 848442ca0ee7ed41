package sim

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var builtinSeed []byte

// Scenario is a complete initial state: threads, resources, model, speed and
// the log lines to start with. Loadable from YAML; Reset restores it.
type Scenario struct {
	Model     ThreadModel    `yaml:"model"`
	Speed     int64          `yaml:"speed"`
	Metrics   *ScenarioCPU   `yaml:"metrics,omitempty"`
	Threads   []ThreadSpec   `yaml:"threads"`
	Resources []ResourceSpec `yaml:"resources"`
	Logs      []string       `yaml:"logs"`
}

// ScenarioCPU optionally overrides the metrics shown before the first tick.
// When nil, metrics are derived from the threads.
type ScenarioCPU struct {
	Utilization     float64 `yaml:"utilization"`
	ContextSwitches int     `yaml:"context_switches"`
	ThreadCount     int     `yaml:"thread_count"`
}

// ThreadSpec is the YAML form of a Thread.
type ThreadSpec struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Priority        int     `yaml:"priority"`
	Status          string  `yaml:"status"`
	ExecutionTime   int64   `yaml:"execution_time"`
	RemainingTime   int64   `yaml:"remaining_time"`
	WaitingFor      string  `yaml:"waiting_for,omitempty"`
	CPUUsage        float64 `yaml:"cpu_usage"`
	MemoryUsage     float64 `yaml:"memory_usage"`
	IOOperations    int     `yaml:"io_operations"`
	ContextSwitches int     `yaml:"context_switches"`
}

// ResourceSpec is the YAML form of a Resource.
type ResourceSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	InUseBy string `yaml:"in_use_by,omitempty"`
}

// DefaultScenario returns the built-in seed: three threads, three resources.
func DefaultScenario() *Scenario {
	sc, err := ParseScenario(builtinSeed)
	if err != nil {
		panic(fmt.Sprintf("built-in seed scenario is invalid: %v", err))
	}
	return sc
}

// LoadScenario reads, parses and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML with strict field checking (typos must cause errors)
// and validates the result.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario: %w", err)
	}
	return &sc, nil
}

// Marshal encodes the scenario as YAML.
func (sc *Scenario) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks names, ranges, references and the thread/resource invariants.
// Empty model and zero speed are allowed; the Simulator fills in defaults.
func (sc *Scenario) Validate() error {
	if sc.Model != "" && !ValidModels[sc.Model] {
		return &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", sc.Model)}
	}
	if err := validateSpeed(sc.Speed, true); err != nil {
		return err
	}

	threadIDs := make(map[string]bool, len(sc.Threads))
	for _, t := range sc.Threads {
		if t.ID == "" {
			return &ValidationError{Field: "thread id", Reason: "must not be empty"}
		}
		if threadIDs[t.ID] {
			return &ValidationError{Field: "thread id", Reason: fmt.Sprintf("duplicate id %q", t.ID)}
		}
		threadIDs[t.ID] = true
		if err := t.validate(); err != nil {
			return fmt.Errorf("thread %s: %w", t.ID, err)
		}
	}

	resourceIDs := make(map[string]bool, len(sc.Resources))
	for _, r := range sc.Resources {
		if r.ID == "" {
			return &ValidationError{Field: "resource id", Reason: "must not be empty"}
		}
		if resourceIDs[r.ID] {
			return &ValidationError{Field: "resource id", Reason: fmt.Sprintf("duplicate id %q", r.ID)}
		}
		resourceIDs[r.ID] = true
		if err := validateName("resource name", r.Name); err != nil {
			return fmt.Errorf("resource %s: %w", r.ID, err)
		}
		if !IsValidResourceType(r.Type) {
			return fmt.Errorf("resource %s: %w", r.ID, &ValidationError{Field: "resource type", Reason: fmt.Sprintf("unknown type %q", r.Type)})
		}
		if r.InUseBy != "" && !threadIDs[r.InUseBy] {
			return fmt.Errorf("resource %s: %w", r.ID, &NotFoundError{Kind: "thread", ID: r.InUseBy})
		}
	}

	for _, t := range sc.Threads {
		if t.WaitingFor != "" && !resourceIDs[t.WaitingFor] {
			return fmt.Errorf("thread %s: %w", t.ID, &NotFoundError{Kind: "resource", ID: t.WaitingFor})
		}
	}
	return nil
}

func (t ThreadSpec) validate() error {
	if err := validateName("thread name", t.Name); err != nil {
		return err
	}
	if err := validatePriority(t.Priority); err != nil {
		return err
	}
	if err := validateExecutionTime(t.ExecutionTime); err != nil {
		return err
	}
	if !IsValidThreadStatus(t.Status) {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", t.Status)}
	}
	status := ThreadStatus(t.Status)
	if t.RemainingTime < 0 || t.RemainingTime > t.ExecutionTime {
		return &ValidationError{Field: "remaining time", Reason: fmt.Sprintf("must be in [0, %d], got %d", t.ExecutionTime, t.RemainingTime)}
	}
	if (t.RemainingTime == 0) != (status == StatusTerminated) {
		return &ValidationError{Field: "remaining time", Reason: "must be 0 exactly when terminated"}
	}
	if t.WaitingFor != "" && status != StatusWaiting {
		return &ValidationError{Field: "waiting_for", Reason: "only waiting threads may wait for a resource"}
	}
	return nil
}

func (t ThreadSpec) toThread() *Thread {
	return &Thread{
		ID:              t.ID,
		Name:            t.Name,
		Priority:        t.Priority,
		Status:          ThreadStatus(t.Status),
		ExecutionTime:   t.ExecutionTime,
		RemainingTime:   t.RemainingTime,
		WaitingFor:      t.WaitingFor,
		CPUUsage:        t.CPUUsage,
		MemoryUsage:     t.MemoryUsage,
		IOOperations:    t.IOOperations,
		ContextSwitches: t.ContextSwitches,
	}
}

func (r ResourceSpec) toResource() *Resource {
	return &Resource{ID: r.ID, Name: r.Name, Type: ResourceType(r.Type), InUseBy: r.InUseBy}
}
