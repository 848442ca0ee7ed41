package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulator_DefaultScenario(t *testing.T) {
	s, err := NewSimulator(SimulatorConfig{Key: NewSimulationKey(1)})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, ModelManyToOne, snap.Model)
	assert.Equal(t, DefaultSpeed, snap.Speed)
	assert.False(t, snap.Running)
	require.Len(t, snap.Threads, 3)
	require.Len(t, snap.Resources, 3)
	assert.Equal(t, "Main Thread", snap.Threads[0].Name)
	assert.Equal(t, StatusRunning, snap.Threads[0].Status)
	assert.Equal(t, "thread-3", snap.Resources[0].InUseBy)
	assert.Equal(t, CPUMetrics{Utilization: 35, ContextSwitches: 6, ThreadCount: 3}, snap.Metrics)
	require.Len(t, snap.Logs, 6)
	assert.Equal(t, "System initialized", snap.Logs[0].Message)
}

func TestNewSimulator_ConfigOverridesScenario(t *testing.T) {
	sc := &Scenario{Model: ModelOneToOne, Speed: 500}
	s, err := NewSimulator(SimulatorConfig{Model: ModelManyToMany, Speed: 50, Scenario: sc})
	require.NoError(t, err)
	assert.Equal(t, ModelManyToMany, s.Model())
	assert.Equal(t, int64(50), s.Speed())

	s, err = NewSimulator(SimulatorConfig{Scenario: sc})
	require.NoError(t, err)
	assert.Equal(t, ModelOneToOne, s.Model())
	assert.Equal(t, int64(500), s.Speed())
}

func TestNewSimulator_InvalidInputs(t *testing.T) {
	_, err := NewSimulator(SimulatorConfig{Model: "two-to-three"})
	assert.True(t, IsValidation(err))

	bad := &Scenario{Threads: []ThreadSpec{readySpec("a", "", 5, 100)}}
	_, err = NewSimulator(SimulatorConfig{Scenario: bad})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNewSimulator_SpeedAboveMaxRejected(t *testing.T) {
	_, err := NewSimulator(SimulatorConfig{Speed: MaxSpeed + 1})
	assert.True(t, IsValidation(err))

	_, err = NewSimulator(SimulatorConfig{Scenario: &Scenario{Speed: 1 << 62}})
	assert.True(t, IsValidation(err))
}

func TestNewSimulator_ExclusiveModelOverMultiRunningScenario(t *testing.T) {
	// GIVEN a scenario with two Running threads loaded under many-to-one
	s := newTestSimulator(t, ModelManyToOne, 100, never(), []ThreadSpec{
		runningSpec("a", "A", 5, 5000, 5000),
		runningSpec("b", "B", 5, 5000, 5000),
	}, nil)

	// THEN only the first keeps the CPU, before and after a tick
	assert.Equal(t, 1, countRunning(s.Threads()))
	assert.Equal(t, StatusRunning, mustThread(t, s, "a").Status)
	assert.Equal(t, StatusReady, mustThread(t, s, "b").Status)
	require.NoError(t, s.Step())
	assert.Equal(t, 1, countRunning(s.Threads()))
}

func TestAddThread_CreatesReadyThread(t *testing.T) {
	s := newTestSimulator(t, ModelManyToOne, 100, never(), nil, nil)

	id, err := s.AddThread("Worker", 7, 2500)
	require.NoError(t, err)
	assert.Equal(t, "thread-1", id)

	th := mustThread(t, s, id)
	assert.Equal(t, "Worker", th.Name)
	assert.Equal(t, 7, th.Priority)
	assert.Equal(t, StatusReady, th.Status)
	assert.Equal(t, int64(2500), th.ExecutionTime)
	assert.Equal(t, int64(2500), th.RemainingTime)
	assert.Equal(t, testEpoch, th.CreatedAt)
	assert.Equal(t, 119.0, th.MemoryUsage) // 20 + floor(0.999*100)
	assert.Equal(t, 1, s.Metrics().ThreadCount)
	assert.Contains(t, logMessages(s.Logs()), "Thread Worker created")
}

func TestAddThread_Validation(t *testing.T) {
	tests := []struct {
		name     string
		tname    string
		priority int
		exec     int64
		field    string
	}{
		{"empty name", "", 5, 1000, "thread name"},
		{"blank name", "   ", 5, 1000, "thread name"},
		{"priority too low", "T", 0, 1000, "priority"},
		{"priority too high", "T", 11, 1000, "priority"},
		{"zero execution time", "T", 5, 0, "execution time"},
		{"negative execution time", "T", 5, -10, "execution time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSimulator(t, ModelManyToOne, 100, never(), nil, nil)
			_, err := s.AddThread(tt.tname, tt.priority, tt.exec)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, s.Threads())
		})
	}
}

func TestUpdateThread_ResetsRemainingForReadyAndWaiting(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		readySpec("r", "R", 5, 1000),
		waitingSpec("w", "W", 1000, ""),
	}, nil)

	newName, prio, exec := "Renamed", 9, int64(4000)
	require.NoError(t, s.UpdateThread("r", ThreadUpdate{Name: &newName, Priority: &prio, ExecutionTime: &exec}))
	require.NoError(t, s.UpdateThread("w", ThreadUpdate{ExecutionTime: &exec}))

	r := mustThread(t, s, "r")
	assert.Equal(t, "Renamed", r.Name)
	assert.Equal(t, 9, r.Priority)
	assert.Equal(t, int64(4000), r.RemainingTime)
	assert.Equal(t, int64(4000), mustThread(t, s, "w").RemainingTime)
}

func TestUpdateThread_RunningKeepsInvariant(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{runningSpec("x", "X", 5, 5000, 3000)}, nil)

	shorter := int64(2000)
	require.NoError(t, s.UpdateThread("x", ThreadUpdate{ExecutionTime: &shorter}))
	x := mustThread(t, s, "x")
	assert.Equal(t, int64(2000), x.ExecutionTime)
	assert.Equal(t, int64(2000), x.RemainingTime)

	longer := int64(9000)
	require.NoError(t, s.UpdateThread("x", ThreadUpdate{ExecutionTime: &longer}))
	assert.Equal(t, int64(2000), mustThread(t, s, "x").RemainingTime)
	assertInvariants(t, s)
}

func TestUpdateThread_Errors(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{readySpec("r", "R", 5, 1000)}, nil)

	bad := 42
	err := s.UpdateThread("r", ThreadUpdate{Priority: &bad})
	assert.True(t, IsValidation(err))
	assert.Equal(t, 5, mustThread(t, s, "r").Priority)

	err = s.UpdateThread("missing", ThreadUpdate{})
	assert.True(t, IsNotFound(err))
}

func TestRemoveThread_ReleasesHeldResources(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		readySpec("a", "A", 5, 1000),
		readySpec("b", "B", 5, 1000),
	}, []ResourceSpec{resourceSpec("r1", "Disk", "")})
	require.NoError(t, s.Allocate("a", "r1"))
	require.NoError(t, s.Allocate("b", "r1"))

	require.NoError(t, s.RemoveThread("a"))

	_, err := s.Thread("a")
	assert.True(t, IsNotFound(err))
	owner, _ := resourceOwner(s, "r1")
	assert.Empty(t, owner)
	b := mustThread(t, s, "b")
	assert.Equal(t, StatusReady, b.Status)
	assert.Empty(t, b.WaitingFor)
	msgs := logMessages(s.Logs())
	assert.Contains(t, msgs, "Resource Disk released by thread A")
	assert.Contains(t, msgs, "Thread A removed")
	assert.Equal(t, 1, s.Metrics().ThreadCount)
	assertInvariants(t, s)

	assert.True(t, IsNotFound(s.RemoveThread("a")))
}

func TestStartThread_FromReady(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{readySpec("r", "R", 5, 1000)}, nil)

	require.NoError(t, s.StartThread("r"))

	r := mustThread(t, s, "r")
	assert.Equal(t, StatusRunning, r.Status)
	assert.Equal(t, 59.0, r.CPUUsage) // 20 + floor(0.999*40)
	assert.Equal(t, 1, r.ContextSwitches)
	assert.Equal(t, 1, s.Metrics().ContextSwitches)
	assert.Contains(t, logMessages(s.Logs()), "Thread R started execution")
}

func TestStartThread_BlockedThreadAbandonsWait(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{waitingSpec("w", "W", 1000, "r1")},
		[]ResourceSpec{resourceSpec("r1", "Disk", "w")})

	require.NoError(t, s.StartThread("w"))

	w := mustThread(t, s, "w")
	assert.Equal(t, StatusRunning, w.Status)
	assert.Empty(t, w.WaitingFor)
	owner, _ := resourceOwner(s, "r1")
	assert.Empty(t, owner)
	assertInvariants(t, s)
}

func TestStartThread_ManyToOnePreemptsRunningThread(t *testing.T) {
	s := newTestSimulator(t, ModelManyToOne, 100, never(), []ThreadSpec{
		runningSpec("a", "A", 5, 5000, 5000),
		readySpec("b", "B", 5, 1000),
	}, nil)

	require.NoError(t, s.StartThread("b"))

	assert.Equal(t, StatusReady, mustThread(t, s, "a").Status)
	assert.Equal(t, StatusRunning, mustThread(t, s, "b").Status)
	assert.Equal(t, 1, countRunning(s.Threads()))
}

func TestStartThread_NoOps(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		runningSpec("run", "Run", 5, 5000, 5000),
		{ID: "done", Name: "Done", Priority: 1, Status: string(StatusTerminated), ExecutionTime: 100},
	}, nil)
	before := len(s.Logs())

	require.NoError(t, s.StartThread("run"))
	require.NoError(t, s.StartThread("done"))

	assert.Equal(t, 45.0, mustThread(t, s, "run").CPUUsage)
	assert.Equal(t, StatusTerminated, mustThread(t, s, "done").Status)
	assert.Len(t, s.Logs(), before)
	assert.True(t, IsNotFound(s.StartThread("missing")))
}

func TestPauseThread(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		runningSpec("run", "Run", 5, 5000, 5000),
		readySpec("r", "R", 5, 1000),
	}, nil)

	require.NoError(t, s.PauseThread("run"))
	require.NoError(t, s.PauseThread("r"))

	run := mustThread(t, s, "run")
	assert.Equal(t, StatusWaiting, run.Status)
	assert.Empty(t, run.WaitingFor)
	assert.Equal(t, 5.0, run.CPUUsage) // min(45/2, 5)
	assert.Equal(t, 1, run.ContextSwitches)
	assert.Equal(t, StatusReady, mustThread(t, s, "r").Status)
	assert.Equal(t, 1, countLogs(s.Logs(), "paused"))
}

func TestTerminateThread_IsIdempotent(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{runningSpec("x", "X", 5, 5000, 5000)},
		[]ResourceSpec{resourceSpec("r1", "Disk", "")})
	require.NoError(t, s.Allocate("x", "r1"))

	require.NoError(t, s.TerminateThread("x"))
	first := s.Threads()
	require.NoError(t, s.TerminateThread("x"))

	x := mustThread(t, s, "x")
	assert.Equal(t, StatusTerminated, x.Status)
	assert.Equal(t, int64(0), x.RemainingTime)
	assert.Equal(t, 0.0, x.CPUUsage)
	assert.Equal(t, first, s.Threads())
	assert.Equal(t, 1, countLogs(s.Logs(), "Thread X terminated"))
	owner, _ := resourceOwner(s, "r1")
	assert.Empty(t, owner)
	assertInvariants(t, s)
}

func TestSetModel(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		runningSpec("a", "A", 5, 5000, 5000),
		runningSpec("b", "B", 5, 5000, 5000),
	}, nil)

	require.NoError(t, s.SetModel(ModelManyToOne))

	assert.Equal(t, ModelManyToOne, s.Model())
	assert.Equal(t, StatusRunning, mustThread(t, s, "a").Status)
	assert.Equal(t, StatusReady, mustThread(t, s, "b").Status)
	assert.Contains(t, logMessages(s.Logs()), "Thread model set to many-to-one")

	n := len(s.Logs())
	require.NoError(t, s.SetModel(ModelManyToOne))
	assert.Len(t, s.Logs(), n)

	assert.True(t, IsValidation(s.SetModel("bogus")))
}

func TestSetModel_RefusedWhileRunning(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 10_000, never(), nil, nil)
	s.Start()
	defer s.Stop()

	err := s.SetModel(ModelManyToMany)
	assert.ErrorIs(t, err, ErrSimulationRunning)
	assert.Equal(t, ModelOneToOne, s.Model())
}

func TestReset_RestoresScenario(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, &scriptedSource{fallback: 0.0}, []ThreadSpec{
		readySpec("a", "A", 5, 1000),
	}, []ResourceSpec{resourceSpec("r1", "Disk", "")})
	_, err := s.AddThread("Extra", 3, 700)
	require.NoError(t, err)
	_, err = s.AddResource("Socket", ResourceNetwork)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step())
	}
	require.NoError(t, s.SetSpeed(250))

	s.Reset()

	snap := s.Snapshot()
	require.Len(t, snap.Threads, 1)
	assert.Equal(t, StatusReady, snap.Threads[0].Status)
	assert.Equal(t, int64(1000), snap.Threads[0].RemainingTime)
	require.Len(t, snap.Resources, 1)
	assert.Empty(t, snap.Resources[0].InUseBy)
	assert.Equal(t, int64(0), snap.Tick)
	assert.Equal(t, int64(250), snap.Speed)
	assert.Equal(t, ModelOneToOne, snap.Model)
	assert.False(t, snap.Running)
	assert.Equal(t, []string{"System reset"}, logMessages(snap.Logs))
}

func TestReset_UnderManyToOne_KeepsSingleRunningThread(t *testing.T) {
	// GIVEN a one-to-one scenario with two Running threads, switched to many-to-one
	s := newTestSimulator(t, ModelOneToOne, 100, never(), []ThreadSpec{
		runningSpec("a", "A", 5, 5000, 5000),
		runningSpec("b", "B", 5, 5000, 5000),
	}, nil)
	require.NoError(t, s.SetModel(ModelManyToOne))

	// WHEN the seed is reloaded under the kept model
	s.Reset()

	// THEN the reload honours mutual exclusion
	assert.Equal(t, ModelManyToOne, s.Model())
	assert.Equal(t, 1, countRunning(s.Threads()))
	assert.Equal(t, StatusReady, mustThread(t, s, "b").Status)
	require.NoError(t, s.Step())
	assert.Equal(t, 1, countRunning(s.Threads()))
}

func TestReset_StopsDriver(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 5, never(), nil, nil)
	s.Start()
	s.Reset()
	assert.False(t, s.Running())
	require.NoError(t, s.Step())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestSimulator(t, ModelOneToOne, 100, never(),
		[]ThreadSpec{readySpec("a", "A", 5, 1000)}, nil)

	snap := s.Snapshot()
	snap.Threads[0].Name = "mutated"

	assert.Equal(t, "A", mustThread(t, s, "a").Name)
}
