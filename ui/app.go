package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	sim "github.com/inference-sim/threadsim/sim"
)

// Speed bounds offered by the +/- keys, in simulated ms per tick.
const (
	minSpeed int64 = 50
	maxSpeed int64 = 1000
)

// statusTTL is how long a status line message stays visible.
const statusTTL = 4 * time.Second

var modelKeys = map[string]sim.ThreadModel{
	"1": sim.ModelManyToOne,
	"2": sim.ModelOneToOne,
	"3": sim.ModelManyToMany,
}

type tickMsg time.Time

// Model is the bubbletea model for the watch screen. It only reads simulator
// state and calls public simulator operations.
type Model struct {
	sim      *sim.Simulator
	interval time.Duration
	width    int
	height   int

	snap     sim.Snapshot
	selected int // row in the thread table
	showHelp bool
	added    int // threads added from the UI, used for default names

	status     string
	statusTime time.Time
}

// NewModel creates a TUI model over s refreshing every interval.
func NewModel(s *sim.Simulator, interval time.Duration) Model {
	return Model{sim: s, interval: interval, snap: s.Snapshot()}
}

func (m Model) Init() tea.Cmd {
	return tick(m.interval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.sim.Stop()
			return m, tea.Quit
		case "?":
			m.showHelp = true
		case " ", "space":
			if m.sim.Running() {
				m.sim.Stop()
			} else {
				m.sim.Start()
			}
		case "n":
			m.setErr(m.sim.Step())
		case "r":
			m.sim.Reset()
			m.selected = 0
			m.setStatus("Simulation reset")
		case "1", "2", "3":
			m.setErr(m.sim.SetModel(modelKeys[key]))
		case "+", "=":
			m.setErr(m.sim.SetSpeed(max(minSpeed, m.sim.Speed()/2)))
		case "-", "_":
			m.setErr(m.sim.SetSpeed(min(maxSpeed, m.sim.Speed()*2)))
		case "j", "down":
			if m.selected < len(m.snap.Threads)-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "c":
			m.sim.ClearLogs()
		case "a":
			m.added++
			_, err := m.sim.AddThread(fmt.Sprintf("Thread %d", m.added), 5, 3000)
			m.setErr(err)
		default:
			m.threadAction(key)
		}
		m.refresh()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick(m.interval)
	}
	return m, nil
}

// threadAction applies a per-thread key to the selected row.
func (m *Model) threadAction(key string) {
	id, ok := m.selectedID()
	if !ok {
		return
	}
	switch key {
	case "s":
		m.setErr(m.sim.StartThread(id))
	case "p":
		m.setErr(m.sim.PauseThread(id))
	case "t":
		m.setErr(m.sim.TerminateThread(id))
	case "x":
		m.setErr(m.sim.RemoveThread(id))
	case "g":
		m.grabResource(id)
	case "u":
		for _, r := range m.snap.Resources {
			if r.InUseBy == id {
				m.setErr(m.sim.Release(r.ID))
			}
		}
	}
}

// grabResource allocates the first free resource to id, or queues id on the
// first held one when none is free.
func (m *Model) grabResource(id string) {
	if len(m.snap.Resources) == 0 {
		m.setStatus("No resources registered")
		return
	}
	target := m.snap.Resources[0].ID
	for _, r := range m.snap.Resources {
		if r.Available() {
			target = r.ID
			break
		}
	}
	m.setErr(m.sim.Allocate(id, target))
}

func (m Model) selectedID() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.snap.Threads) {
		return "", false
	}
	return m.snap.Threads[m.selected].ID, true
}

func (m *Model) refresh() {
	m.snap = m.sim.Snapshot()
	if m.selected >= len(m.snap.Threads) {
		m.selected = max(0, len(m.snap.Threads)-1)
	}
	if m.status != "" && time.Since(m.statusTime) > statusTTL {
		m.status = ""
	}
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.setStatus(err.Error())
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusTime = time.Now()
}
