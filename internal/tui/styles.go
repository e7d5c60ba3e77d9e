// Package tui provides a Bubble Tea dashboard for the coworker shell.
// styles.go defines lipgloss styles for the dashboard panels and status indicators.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/insajin/coworker-shell/internal/branding"
)

// Panel border and title styles.
var (
	// panelStyle defines the base panel with a rounded border.
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(branding.ColorBorder)).
			Padding(0, 1)

	// activePanelStyle highlights the currently focused panel.
	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(branding.ColorAccent)).
				Padding(0, 1)

	// titleStyle formats panel titles.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			Background(lipgloss.Color(branding.ColorTitleBg)).
			Padding(0, 1)
)

// Worker status styles.
var (
	statusRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorOK)).
			Bold(true)

	statusStopped = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorError)).
			Bold(true)

	statusPending = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorAccent)).
			Bold(true)
)

// Table formatting styles.
var (
	// headerStyle formats table column headers.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(branding.ColorWhite)).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(branding.ColorTitleBg))

	// selectedRowStyle highlights the currently selected table row.
	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color(branding.ColorTitleBg)).
				Foreground(lipgloss.Color(branding.ColorWhite))

	// normalRowStyle formats a normal (unselected) table row.
	normalRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLabel))
)

// Label and value styles for key-value pairs.
var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorLabel)).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorWhite))
)

// Activity status indicator styles.
var (
	activityCompleted = lipgloss.NewStyle().
				Foreground(lipgloss.Color(branding.ColorOK))

	activityRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorAccent))

	activityFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorError))
)

// Footer and help styles.
var (
	// helpStyle renders keyboard shortcut hints in the footer.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorMuted))

	// helpKeyStyle renders keyboard shortcut keys.
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(branding.ColorOK)).
			Bold(true)
)
