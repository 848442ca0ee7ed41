// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/threadsim/sim/trace"
)

// Simulator is the single object that owns all simulation state: the thread
// table, the resource registry, derived metrics, the event log and the driver.
//
// Every public method is safe for concurrent use. State is only mutated while
// holding mu, and a tick runs to completion under it, so ticks never overlap.
// Lock order is runMu then mu.
type Simulator struct {
	mu        sync.Mutex
	scenario  *Scenario
	policy    SchedulingPolicy
	rnd       RandomSource
	threads   []*Thread
	resources []*Resource
	metrics   CPUMetrics
	log       *EventLog
	trace     *trace.SimulationTrace
	speed     int64
	tickCount int64
	now       func() time.Time
	newID     func(prefix string) string

	// Continuous driver state.
	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Snapshot is a consistent copy of the simulator's observable state.
type Snapshot struct {
	Threads   []Thread
	Resources []Resource
	Metrics   CPUMetrics
	Logs      []LogEntry
	Model     ThreadModel
	Running   bool
	Speed     int64
	Tick      int64
}

// NewSimulator creates a simulator loaded with the configured seed scenario.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	sc := cfg.Scenario
	if sc == nil {
		sc = DefaultScenario()
	} else if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = sc.Model
	}
	if model == "" {
		model = ModelManyToOne
	}
	if !ValidModels[model] {
		return nil, &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", model)}
	}

	if err := validateSpeed(cfg.Speed, true); err != nil {
		return nil, err
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = sc.Speed
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}

	s := &Simulator{
		scenario: sc,
		policy:   NewSchedulingPolicy(model),
		rnd:      cfg.Random,
		trace:    trace.NewSimulationTrace(cfg.Trace),
		speed:    speed,
		now:      cfg.Now,
		newID:    cfg.NewID,
	}
	if s.rnd == nil {
		s.rnd = NewRandomSource(cfg.Key)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}
	s.log = NewEventLog(s.now)

	s.loadScenarioLocked()
	logrus.Infof("Simulator created: model=%s, speed=%dms, threads=%d, resources=%d",
		model, speed, len(s.threads), len(s.resources))
	return s, nil
}

// Reset stops the driver and restores the seed scenario. The model and speed
// currently selected are kept.
func (sim *Simulator) Reset() {
	sim.runMu.Lock()
	defer sim.runMu.Unlock()
	sim.stopLoopLocked()
	sim.running = false

	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.log.Clear()
	sim.trace.Reset()
	sim.tickCount = 0
	sim.addLogLocked("System reset")
	sim.loadScenarioLocked()
}

// loadScenarioLocked replaces threads, resources and metrics with fresh copies
// of the seed scenario and appends its log lines. Under an exclusive model only
// the first Running thread of the seed keeps the CPU.
func (sim *Simulator) loadScenarioLocked() {
	created := sim.now()
	sim.threads = make([]*Thread, 0, len(sim.scenario.Threads))
	for _, ts := range sim.scenario.Threads {
		t := ts.toThread()
		t.CreatedAt = created
		sim.threads = append(sim.threads, t)
	}
	sim.resources = make([]*Resource, 0, len(sim.scenario.Resources))
	for _, rs := range sim.scenario.Resources {
		sim.resources = append(sim.resources, rs.toResource())
	}
	if m := sim.scenario.Metrics; m != nil {
		sim.metrics = CPUMetrics{Utilization: m.Utilization, ContextSwitches: m.ContextSwitches, ThreadCount: m.ThreadCount}
	} else {
		sim.metrics = computeMetrics(sim.threads)
	}
	for _, line := range sim.scenario.Logs {
		sim.addLogLocked(line)
	}
	if sim.policy.Exclusive() {
		sim.demoteRunningLocked("", "scenario load")
	}
}

// SetModel switches the active threading model. Only permitted while the
// continuous driver is stopped. Switching to an exclusive model keeps the first
// Running thread (table order) and returns any others to Ready.
func (sim *Simulator) SetModel(model ThreadModel) error {
	if !ValidModels[model] {
		return &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", model)}
	}
	sim.runMu.Lock()
	defer sim.runMu.Unlock()
	if sim.running {
		return fmt.Errorf("cannot change model to %s: %w", model, ErrSimulationRunning)
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()
	if sim.policy.Model() == model {
		return nil
	}
	sim.policy = NewSchedulingPolicy(model)
	if sim.policy.Exclusive() {
		sim.demoteRunningLocked("", "model switch")
	}
	sim.addLogLocked(fmt.Sprintf("Thread model set to %s", model))
	return nil
}

// AddThread creates a Ready thread and returns its id.
func (sim *Simulator) AddThread(name string, priority int, executionTime int64) (string, error) {
	if err := validateName("thread name", name); err != nil {
		return "", err
	}
	if err := validatePriority(priority); err != nil {
		return "", err
	}
	if err := validateExecutionTime(executionTime); err != nil {
		return "", err
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := &Thread{
		ID:            sim.newID("thread"),
		Name:          name,
		Priority:      priority,
		Status:        StatusReady,
		CreatedAt:     sim.now(),
		ExecutionTime: executionTime,
		RemainingTime: executionTime,
		MemoryUsage:   randRange(sim.rnd, 20, 100),
	}
	sim.threads = append(sim.threads, t)
	sim.metrics.ThreadCount = len(sim.threads)
	sim.addLogLocked(fmt.Sprintf("Thread %s created", name))
	return t.ID, nil
}

// UpdateThread merges the non-nil fields of u into the thread. Remaining time is
// reset to a new execution time only for Ready or Waiting threads.
func (sim *Simulator) UpdateThread(id string, u ThreadUpdate) error {
	if u.Name != nil {
		if err := validateName("thread name", *u.Name); err != nil {
			return err
		}
	}
	if u.Priority != nil {
		if err := validatePriority(*u.Priority); err != nil {
			return err
		}
	}
	if u.ExecutionTime != nil {
		if err := validateExecutionTime(*u.ExecutionTime); err != nil {
			return err
		}
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := sim.threadByID(id)
	if t == nil {
		return &NotFoundError{Kind: "thread", ID: id}
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.ExecutionTime != nil {
		t.ExecutionTime = *u.ExecutionTime
		switch t.Status {
		case StatusReady, StatusWaiting:
			t.RemainingTime = t.ExecutionTime
		case StatusRunning:
			t.RemainingTime = max(1, min(t.RemainingTime, t.ExecutionTime))
		}
	}
	return nil
}

// RemoveThread deletes a thread, releasing any resource it held.
func (sim *Simulator) RemoveThread(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	idx := sim.threadIndex(id)
	if idx < 0 {
		return &NotFoundError{Kind: "thread", ID: id}
	}
	t := sim.threads[idx]
	sim.releaseHeldBy(id)
	sim.threads = append(sim.threads[:idx], sim.threads[idx+1:]...)
	sim.metrics.ThreadCount = len(sim.threads)
	sim.addLogLocked(fmt.Sprintf("Thread %s removed", t.Name))
	return nil
}

// StartThread forces a thread to Running. Terminated and already-Running threads
// are left alone. A blocked thread abandons its wait and any resource it held.
func (sim *Simulator) StartThread(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := sim.threadByID(id)
	if t == nil {
		return &NotFoundError{Kind: "thread", ID: id}
	}
	if t.Status == StatusTerminated || t.Status == StatusRunning {
		return nil
	}

	from := t.Status
	blockedOn := t.WaitingFor
	t.WaitingFor = ""
	if r := sim.resourceByID(blockedOn); r != nil && r.InUseBy == t.ID {
		sim.releaseLocked(r)
	}
	if sim.policy.Exclusive() {
		sim.demoteRunningLocked(t.ID, "preempted by "+t.Name)
	}
	t.Status = StatusRunning
	t.CPUUsage = randRange(sim.rnd, 20, 40)
	t.ContextSwitches++
	sim.metrics.ContextSwitches++
	sim.recordTransition(t, from, "started")
	sim.addLogLocked(fmt.Sprintf("Thread %s started execution", t.Name))
	return nil
}

// PauseThread moves a Running thread to Waiting without a resource.
func (sim *Simulator) PauseThread(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := sim.threadByID(id)
	if t == nil {
		return &NotFoundError{Kind: "thread", ID: id}
	}
	if t.Status != StatusRunning {
		return nil
	}

	t.Status = StatusWaiting
	t.CPUUsage = min(t.CPUUsage/2, 5)
	t.ContextSwitches++
	sim.metrics.ContextSwitches++
	sim.recordTransition(t, StatusRunning, "paused")
	sim.addLogLocked(fmt.Sprintf("Thread %s paused", t.Name))
	return nil
}

// TerminateThread ends a thread immediately. Terminating twice is a no-op.
func (sim *Simulator) TerminateThread(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	t := sim.threadByID(id)
	if t == nil {
		return &NotFoundError{Kind: "thread", ID: id}
	}
	if t.Status == StatusTerminated {
		return nil
	}

	from := t.Status
	t.Status = StatusTerminated
	t.RemainingTime = 0
	t.CPUUsage = 0
	t.WaitingFor = ""
	sim.recordTransition(t, from, "terminated")
	sim.releaseHeldBy(t.ID)
	sim.addLogLocked(fmt.Sprintf("Thread %s terminated", t.Name))
	return nil
}

// demoteRunningLocked returns every Running thread except keepID to Ready.
// An empty keepID keeps the first Running thread in table order.
func (sim *Simulator) demoteRunningLocked(keepID, reason string) {
	kept := keepID != ""
	for _, t := range sim.threads {
		if t.Status != StatusRunning || t.ID == keepID {
			continue
		}
		if !kept {
			kept = true
			continue
		}
		t.Status = StatusReady
		t.ContextSwitches++
		sim.metrics.ContextSwitches++
		sim.recordTransition(t, StatusRunning, reason)
	}
}

// recordTransition appends a trace record for t moving from -> t.Status.
func (sim *Simulator) recordTransition(t *Thread, from ThreadStatus, reason string) {
	if from == t.Status {
		return
	}
	sim.trace.RecordTransition(trace.TransitionRecord{
		Tick:       sim.tickCount,
		ThreadID:   t.ID,
		ThreadName: t.Name,
		From:       string(from),
		To:         string(t.Status),
		ResourceID: t.WaitingFor,
		Reason:     reason,
	})
}

func (sim *Simulator) threadIndex(id string) int {
	for i, t := range sim.threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (sim *Simulator) threadByID(id string) *Thread {
	if i := sim.threadIndex(id); i >= 0 {
		return sim.threads[i]
	}
	return nil
}

// === Readers ===

// Threads returns a copy of the thread table in table order.
func (sim *Simulator) Threads() []Thread {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.threadsLocked()
}

func (sim *Simulator) threadsLocked() []Thread {
	out := make([]Thread, len(sim.threads))
	for i, t := range sim.threads {
		out[i] = *t
	}
	return out
}

// Thread returns a copy of one thread.
func (sim *Simulator) Thread(id string) (Thread, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	t := sim.threadByID(id)
	if t == nil {
		return Thread{}, &NotFoundError{Kind: "thread", ID: id}
	}
	return *t, nil
}

// Resources returns a copy of the resource registry in registration order.
func (sim *Simulator) Resources() []Resource {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.resourcesLocked()
}

func (sim *Simulator) resourcesLocked() []Resource {
	out := make([]Resource, len(sim.resources))
	for i, r := range sim.resources {
		out[i] = *r
	}
	return out
}

// Metrics returns the CPU metrics as of the last tick or operation.
func (sim *Simulator) Metrics() CPUMetrics {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.metrics
}

// Logs returns a copy of the event log.
func (sim *Simulator) Logs() []LogEntry {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.log.Entries()
}

// Model returns the active threading model.
func (sim *Simulator) Model() ThreadModel {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.policy.Model()
}

// Speed returns the simulated milliseconds per tick (also the driver period).
func (sim *Simulator) Speed() int64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.speed
}

// TickCount returns the number of ticks executed since creation or reset.
func (sim *Simulator) TickCount() int64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.tickCount
}

// Trace returns a copy of the collected transition trace.
func (sim *Simulator) Trace() *trace.SimulationTrace {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	cp := trace.NewSimulationTrace(sim.trace.Config)
	cp.Transitions = append(cp.Transitions, sim.trace.Transitions...)
	return cp
}

// Snapshot returns a consistent copy of all observable state.
func (sim *Simulator) Snapshot() Snapshot {
	running := sim.Running()
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return Snapshot{
		Threads:   sim.threadsLocked(),
		Resources: sim.resourcesLocked(),
		Metrics:   sim.metrics,
		Logs:      sim.log.Entries(),
		Model:     sim.policy.Model(),
		Running:   running,
		Speed:     sim.speed,
		Tick:      sim.tickCount,
	}
}
