package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry is one immutable line of the event log.
type LogEntry struct {
	Message   string
	Timestamp time.Time
}

// EventLog is an append-only, unbounded record of notable events.
// Retention is left to presentation. Not thread-safe; the Simulator guards it.
type EventLog struct {
	entries []LogEntry
	now     func() time.Time
}

// NewEventLog creates an empty log stamping entries with now.
func NewEventLog(now func() time.Time) *EventLog {
	if now == nil {
		now = time.Now
	}
	return &EventLog{now: now}
}

// Add appends message with the current timestamp.
func (l *EventLog) Add(message string) {
	l.entries = append(l.entries, LogEntry{Message: message, Timestamp: l.now()})
	logrus.Infof("[event] %s", message)
}

// Clear empties the log.
func (l *EventLog) Clear() {
	l.entries = nil
}

// Len returns the number of entries.
func (l *EventLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log in append order.
func (l *EventLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// AddLog appends a free-form message to the event log.
func (sim *Simulator) AddLog(message string) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.addLogLocked(message)
}

// ClearLogs empties the event log.
func (sim *Simulator) ClearLogs() {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.log.Clear()
}

func (sim *Simulator) addLogLocked(message string) {
	sim.log.Add(message)
}
