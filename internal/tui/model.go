// Package tui provides a Bubble Tea dashboard for the coworker shell.
// model.go implements the main Bubble Tea model with three panels:
// worker status, control activity, and invocation counters.
package tui

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/coworker-shell/internal/branding"
	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/insajin/coworker-shell/internal/worker"
)

// Panel represents which dashboard panel is currently focused.
type Panel int

const (
	// PanelWorker is the worker status panel (top).
	PanelWorker Panel = iota
	// PanelActivity is the control activity panel (middle).
	PanelActivity
	// PanelMetrics is the invocation counters panel (bottom).
	PanelMetrics

	panelCount = 3
)

// maxActivity bounds the activity history kept in memory.
const maxActivity = 50

// actionTimeout bounds a start/stop triggered from the dashboard.
const actionTimeout = 30 * time.Second

// ActivityStatus represents the outcome of a control action.
type ActivityStatus string

const (
	ActivityRunning   ActivityStatus = "running"
	ActivityCompleted ActivityStatus = "completed"
	ActivityFailed    ActivityStatus = "failed"
)

// ActivityEntry is a single start/stop action in the history.
type ActivityEntry struct {
	Action   string
	Status   ActivityStatus
	Message  string
	Duration time.Duration
	Time     time.Time
}

// DashboardData holds all data displayed on the dashboard.
type DashboardData struct {
	Worker worker.Snapshot
	Stats  metrics.Snapshot

	MemoryUsageMB  float64
	GoroutineCount int
}

// fetchData reads a fresh snapshot from ops.
func fetchData(ops shell.Operations) DashboardData {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return DashboardData{
		Worker:         ops.Snapshot(),
		Stats:          ops.Stats(),
		MemoryUsageMB:  float64(memStats.Alloc) / 1024 / 1024,
		GoroutineCount: runtime.NumGoroutine(),
	}
}

// tickMsg signals a periodic data refresh.
type tickMsg time.Time

// actionResultMsg carries the result of an asynchronous start/stop.
type actionResultMsg struct {
	action   string
	message  string
	err      error
	duration time.Duration
}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	// ops is the boundary the dashboard drives.
	ops shell.Operations
	// data holds the current dashboard snapshot.
	data DashboardData
	// activity holds control actions, newest last.
	activity []ActivityEntry
	// pending is true while a start/stop is in flight.
	pending bool
	// activePanel tracks the currently focused panel.
	activePanel Panel
	// selected tracks the selected activity row index.
	selected int
	// scrollOffset tracks the scroll offset for the activity list.
	scrollOffset int
	// showDetail toggles the expanded activity message.
	showDetail bool
	// width and height store the terminal dimensions.
	width  int
	height int
	// quitting signals the program should exit.
	quitting bool
}

// NewModel creates a new dashboard Model driving ops.
func NewModel(ops shell.Operations) Model {
	return Model{
		ops:         ops,
		data:        fetchData(ops),
		activePanel: PanelWorker,
	}
}

// Init implements tea.Model. It starts the auto-refresh ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tickMsg every 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// actionCmd runs a start or stop off the UI goroutine.
func actionCmd(ops shell.Operations, action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		start := time.Now()
		var msg string
		var err error
		switch action {
		case "start":
			msg, err = ops.Start(ctx, ops.DefaultPort())
		case "stop":
			msg, err = ops.Stop(ctx)
		}
		return actionResultMsg{action: action, message: msg, err: err, duration: time.Since(start)}
	}
}

// Update implements tea.Model. It processes messages and updates state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.data = fetchData(m.ops)
		return m, tickCmd()

	case actionResultMsg:
		m.pending = false
		m.finishActivity(msg)
		m.data = fetchData(m.ops)
		return m, nil
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "r":
		m.data = fetchData(m.ops)
		return m, nil

	case "s", "x":
		if m.pending {
			return m, nil
		}
		action := "start"
		if msg.String() == "x" {
			action = "stop"
		}
		m.pending = true
		m.pushActivity(ActivityEntry{Action: action, Status: ActivityRunning, Time: time.Now()})
		return m, actionCmd(m.ops, action)

	case "t":
		m.showDetail = !m.showDetail
		return m, nil

	case "tab":
		m.activePanel = (m.activePanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
		return m, nil

	case "up", "k":
		if m.activePanel == PanelActivity && len(m.activity) > 0 {
			if m.selected > 0 {
				m.selected--
			}
			if m.selected < m.scrollOffset {
				m.scrollOffset = m.selected
			}
		}
		return m, nil

	case "down", "j":
		if m.activePanel == PanelActivity && len(m.activity) > 0 {
			if m.selected < len(m.activity)-1 {
				m.selected++
			}
			maxVisible := 5
			if m.selected >= m.scrollOffset+maxVisible {
				m.scrollOffset = m.selected - maxVisible + 1
			}
		}
		return m, nil
	}

	return m, nil
}

// pushActivity appends an entry, dropping the oldest past maxActivity.
func (m *Model) pushActivity(e ActivityEntry) {
	m.activity = append(m.activity, e)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
	m.selected = len(m.activity) - 1
	if m.selected >= m.scrollOffset+5 {
		m.scrollOffset = m.selected - 4
	}
}

// finishActivity completes the most recent running entry for the action.
func (m *Model) finishActivity(res actionResultMsg) {
	for i := len(m.activity) - 1; i >= 0; i-- {
		e := &m.activity[i]
		if e.Action != res.action || e.Status != ActivityRunning {
			continue
		}
		e.Duration = res.duration
		if res.err != nil {
			e.Status = ActivityFailed
			e.Message = res.err.Error()
		} else {
			e.Status = ActivityCompleted
			e.Message = res.message
		}
		return
	}
}

// View implements tea.Model. It renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return branding.AppName + " Dashboard closed.\n"
	}

	w := m.width
	if w == 0 {
		w = 80
	}
	contentWidth := w - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(contentWidth),
		m.renderWorkerPanel(contentWidth),
		m.renderActivityPanel(contentWidth),
		m.renderMetricsPanel(contentWidth),
		m.renderFooter(contentWidth),
	)
}

// renderHeader returns the dashboard title bar.
func (m Model) renderHeader(width int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(branding.ColorWhite)).
		Background(lipgloss.Color(branding.ColorTitleBg)).
		Padding(0, 1).
		Width(width).
		Render(branding.AppName + " Dashboard")
}

// renderFooter returns the keyboard shortcut help bar.
func (m Model) renderFooter(width int) string {
	keys := []struct {
		key  string
		desc string
	}{
		{"s", "start"},
		{"x", "stop"},
		{"r", "refresh"},
		{"t", "toggle detail"},
		{"tab", "switch panel"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts,
			helpKeyStyle.Render(k.key)+" "+helpStyle.Render(k.desc),
		)
	}

	help := strings.Join(parts, helpStyle.Render("  |  "))
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(help)
}

// renderWorkerPanel renders the worker status panel.
func (m Model) renderWorkerPanel(width int) string {
	snap := m.data.Worker

	pid, command, uptime := "--", "--", "--"
	if snap.Running {
		pid = fmt.Sprintf("%d", snap.PID)
		command = snap.Command
		uptime = formatDuration(snap.Uptime())
	}

	lines := []string{
		labelStyle.Render("Status:") + " " + m.formatWorkerStatus(),
		labelStyle.Render("Port:") + " " + valueStyle.Render(fmt.Sprintf("%d", snap.Port)),
		labelStyle.Render("PID:") + " " + valueStyle.Render(pid),
		labelStyle.Render("Command:") + " " + valueStyle.Render(command),
		labelStyle.Render("Uptime:") + " " + valueStyle.Render(uptime),
	}

	style := m.getPanelStyle(PanelWorker, width)
	title := titleStyle.Render(" Worker ")
	return title + "\n" + style.Render(strings.Join(lines, "\n"))
}

// renderActivityPanel renders the control activity panel.
func (m Model) renderActivityPanel(width int) string {
	colAction := 8
	colStatus := 12
	colDuration := 10
	colTime := 10

	header := headerStyle.Render(
		fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
			colAction, "Action",
			colStatus, "Status",
			colDuration, "Duration",
			colTime, "Time",
			"Message",
		),
	)

	rows := []string{header}

	if len(m.activity) == 0 {
		rows = append(rows, normalRowStyle.Render("  No actions yet"))
	} else {
		maxVisible := 5
		end := m.scrollOffset + maxVisible
		if end > len(m.activity) {
			end = len(m.activity)
		}

		msgWidth := width - (colAction + colStatus + colDuration + colTime + 8)
		if msgWidth < 10 {
			msgWidth = 10
		}

		for i := m.scrollOffset; i < end; i++ {
			e := m.activity[i]
			row := fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
				colAction, e.Action,
				colStatus, m.formatActivityStatus(e.Status),
				colDuration, formatActionDuration(e.Duration),
				colTime, e.Time.Format("15:04:05"),
				truncate(e.Message, msgWidth),
			)

			if i == m.selected && m.activePanel == PanelActivity {
				rows = append(rows, selectedRowStyle.Render(row))
			} else {
				rows = append(rows, normalRowStyle.Render(row))
			}
		}

		if len(m.activity) > maxVisible {
			indicator := fmt.Sprintf("  [%d/%d actions]", m.selected+1, len(m.activity))
			rows = append(rows, helpStyle.Render(indicator))
		}
	}

	if m.showDetail && len(m.activity) > 0 && m.selected < len(m.activity) {
		e := m.activity[m.selected]
		detail := fmt.Sprintf("\n  Detail: %s %s at %s: %s",
			e.Action, string(e.Status), e.Time.Format("2006-01-02 15:04:05"), e.Message)
		rows = append(rows, helpStyle.Render(detail))
	}

	style := m.getPanelStyle(PanelActivity, width)
	title := titleStyle.Render(" Activity ")
	return title + "\n" + style.Render(strings.Join(rows, "\n"))
}

// renderMetricsPanel renders invocation counters and process resources.
func (m Model) renderMetricsPanel(width int) string {
	st := m.data.Stats
	failures := st.RemoteErrors + st.TransportErrors + st.DecodeErrors

	lines := []string{
		labelStyle.Render("Invocations:") + " " + valueStyle.Render(fmt.Sprintf("%d (ok %d, failed %d, rejected %d)",
			st.Invocations, st.InvocationSuccesses, failures, st.RejectedNotRunning)),
		labelStyle.Render("Avg Latency:") + " " + valueStyle.Render(fmt.Sprintf("%.1f ms", st.AvgLatencyMs)),
		labelStyle.Render("Starts/Stops:") + " " + valueStyle.Render(fmt.Sprintf("%d / %d (exits %d)",
			st.WorkerStarts, st.WorkerStops, st.AbnormalExits)),
		labelStyle.Render("Memory:") + " " + valueStyle.Render(fmt.Sprintf("%.1f MB", m.data.MemoryUsageMB)),
		labelStyle.Render("Goroutines:") + " " + valueStyle.Render(fmt.Sprintf("%d", m.data.GoroutineCount)),
	}

	style := m.getPanelStyle(PanelMetrics, width)
	title := titleStyle.Render(" Metrics ")
	return title + "\n" + style.Render(strings.Join(lines, "\n"))
}

// getPanelStyle returns the appropriate panel style based on focus state.
func (m Model) getPanelStyle(panel Panel, width int) lipgloss.Style {
	if m.activePanel == panel {
		return activePanelStyle.Width(width - 2)
	}
	return panelStyle.Width(width - 2)
}

// formatWorkerStatus returns a color-coded worker status string.
func (m Model) formatWorkerStatus() string {
	switch {
	case m.pending:
		return statusPending.Render("Working...")
	case m.data.Worker.Running:
		return statusRunning.Render("Running")
	default:
		return statusStopped.Render("Stopped")
	}
}

// formatActivityStatus returns a color-coded activity status string.
func (m Model) formatActivityStatus(status ActivityStatus) string {
	switch status {
	case ActivityCompleted:
		return activityCompleted.Render(string(status))
	case ActivityRunning:
		return activityRunning.Render(string(status))
	case ActivityFailed:
		return activityFailed.Render(string(status))
	default:
		return string(status)
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	totalSeconds := int(d.Seconds())
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// formatActionDuration formats an action duration. Zero duration shows "--".
func formatActionDuration(d time.Duration) string {
	if d == 0 {
		return "--"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// truncate shortens a string to maxLen, adding an ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
