// dashboard.go implements the TUI dashboard command.
package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/insajin/coworker-shell/internal/tui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// dashboardCmd opens the interactive TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open TUI dashboard for the worker",
	Long: `Opens an interactive TUI dashboard that controls the worker process
and shows its state, recent actions, and bridge counters in real-time.

Panels:
  - Worker: running state, port, PID, command, uptime
  - Activity: recent start/stop actions with status and duration
  - Metrics: lifecycle and invocation counters, memory, goroutines

Keyboard shortcuts:
  s          start worker on the default port
  x          stop worker
  q          quit dashboard (stops a running worker)
  r          manual refresh
  t          toggle activity detail view
  tab        switch between panels
  up/down    scroll activity list`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

// runDashboard initializes and runs the Bubble Tea TUI program.
func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns the terminal, so log output is discarded unless a log file is configured.
	if cfg.Logging.File == "" {
		log.Logger = zerolog.New(io.Discard)
	}

	sh := shell.New(cfg, log.Logger)
	defer shutdownShell(sh)

	p := tea.NewProgram(tui.NewModel(sh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}

	return nil
}
