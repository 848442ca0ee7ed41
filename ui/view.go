package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	sim "github.com/inference-sim/threadsim/sim"
)

// logLines is the number of most recent event log lines shown.
const logLines = 8

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(panelStyle.Width(m.width - 2).Render(m.renderThreads()))
	sb.WriteString("\n")

	half := max(20, m.width/2-2)
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(half).Render(m.renderResources()),
		panelStyle.Width(half).Render(m.renderMetrics()),
	))
	sb.WriteString("\n")
	sb.WriteString(panelStyle.Width(m.width - 2).Render(m.renderLog()))
	sb.WriteString("\n")

	if m.status != "" {
		sb.WriteString(warnStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render("space start/stop  n step  r reset  1/2/3 model  +/- speed  a add  s/p/t/x thread  g/u grab/release  ? help  q quit"))
	return sb.String()
}

func (m Model) renderHeader() string {
	state := critStyle.Render("STOPPED")
	if m.snap.Running {
		state = okStyle.Render("RUNNING")
	}
	return fmt.Sprintf("%s  %s %s  %s %s  %s %s  %s",
		titleStyle.Render("threadsim"),
		labelStyle.Render("model"), valueStyle.Render(string(m.snap.Model)),
		labelStyle.Render("speed"), valueStyle.Render(fmt.Sprintf("%dms", m.snap.Speed)),
		labelStyle.Render("tick"), valueStyle.Render(fmt.Sprintf("%d", m.snap.Tick)),
		state)
}

func (m Model) renderThreads() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-18s %4s %-11s %-22s %6s %7s %4s %4s  %s",
		"NAME", "PRIO", "STATUS", "PROGRESS", "CPU%", "MEM", "I/O", "CS", "WAIT")))
	for i, t := range m.snap.Threads {
		line := fmt.Sprintf("%-18s %4d %s %-22s %s %6.0fM %4d %4d  %s",
			truncate(t.Name, 18), t.Priority,
			statusColor(t.Status).Render(fmt.Sprintf("%-11s", t.Status)),
			progressBar(t, 12),
			pctColor(t.CPUUsage).Render(fmt.Sprintf("%6.1f", t.CPUUsage)),
			t.MemoryUsage, t.IOOperations, t.ContextSwitches, resourceName(m.snap.Resources, t))
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	if len(m.snap.Threads) == 0 {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("no threads (press a to add one)"))
	}
	return sb.String()
}

func (m Model) renderResources() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Resources"))
	for _, r := range m.snap.Resources {
		owner := okStyle.Render("available")
		if !r.Available() {
			owner = warnStyle.Render("held by " + threadName(m.snap.Threads, r.InUseBy))
		}
		fmt.Fprintf(&sb, "\n%-20s %-8s %s", truncate(r.Name, 20), r.Type, owner)
	}
	return sb.String()
}

func (m Model) renderMetrics() string {
	met := m.snap.Metrics
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("CPU"))
	fmt.Fprintf(&sb, "\n%s %s", labelStyle.Render("utilization     "), pctColor(met.Utilization).Render(fmt.Sprintf("%.1f%%", met.Utilization)))
	fmt.Fprintf(&sb, "\n%s %s", labelStyle.Render("context switches"), valueStyle.Render(fmt.Sprintf("%d", met.ContextSwitches)))
	fmt.Fprintf(&sb, "\n%s %s", labelStyle.Render("threads         "), valueStyle.Render(fmt.Sprintf("%d", met.ThreadCount)))
	return sb.String()
}

func (m Model) renderLog() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Event Log"))
	logs := m.snap.Logs
	if len(logs) > logLines {
		logs = logs[len(logs)-logLines:]
	}
	for _, e := range logs {
		msg := e.Message
		if strings.HasPrefix(msg, "WARNING") {
			msg = critStyle.Render(msg)
		}
		fmt.Fprintf(&sb, "\n%s %s", dimStyle.Render(e.Timestamp.Format("15:04:05")), msg)
	}
	return sb.String()
}

func (m Model) renderHelp() string {
	lines := []string{
		titleStyle.Render("threadsim keys"),
		"",
		"space   start / stop continuous simulation",
		"n       advance one tick (stopped only)",
		"r       reset to the seed scenario",
		"1 2 3   many-to-one / one-to-one / many-to-many (stopped only)",
		"+ -     faster / slower",
		"j k     select thread",
		"a       add a thread",
		"s p t x start / pause / terminate / remove selected thread",
		"g u     grab a resource for / release resources of selected thread",
		"c       clear the event log",
		"q       quit",
		"",
		helpStyle.Render("press any key to return"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// progressBar renders completed/total execution time as a fixed-width bar.
func progressBar(t sim.Thread, width int) string {
	done := 0
	if t.ExecutionTime > 0 {
		done = int(float64(t.ExecutionTime-t.RemainingTime) / float64(t.ExecutionTime) * float64(width))
	}
	done = min(width, max(0, done))
	pct := 0
	if t.ExecutionTime > 0 {
		pct = int((t.ExecutionTime - t.RemainingTime) * 100 / t.ExecutionTime)
	}
	return fmt.Sprintf("%s%s %3d%%", strings.Repeat("█", done), strings.Repeat("░", width-done), pct)
}

// resourceName renders the wait reason with the resource's display name.
func resourceName(resources []sim.Resource, t sim.Thread) string {
	if !t.Blocked() {
		return t.WaitReason()
	}
	for _, r := range resources {
		if r.ID == t.WaitingFor {
			return "waiting for " + r.Name
		}
	}
	return t.WaitReason()
}

func threadName(threads []sim.Thread, id string) string {
	for _, t := range threads {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
