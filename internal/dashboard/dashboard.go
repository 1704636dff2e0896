// Package dashboard provides an interactive Bubble Tea-based TUI for a
// monitoring run. It lists every device with its session state, latest
// CPU and memory readings and a memory sparkline, and shows the selected
// device's last transition and failure.
package dashboard

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

type runOutcome struct {
	result *monitor.Result
	err    error
}

// Run drives orch in the background and the TUI in the foreground. Quitting
// the TUI cancels monitoring; Run then waits for every session to stop and
// returns the orchestrator's result. Without a terminal it just runs orch.
func Run(ctx context.Context, orch *monitor.Orchestrator, policy monitor.Policy) (*monitor.Result, error) {
	if !ui.IsTerminal(os.Stdout) {
		return orch.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		NewModel(orch.Targets(), policy, cancel),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	bridge := NewBridge(program)
	orch.AddObserver(bridge)

	done := make(chan runOutcome, 1)
	go func() {
		result, err := orch.Run(ctx)
		done <- runOutcome{result, err}
		bridge.OrchestratorDone(err)
	}()

	_, tuiErr := program.Run()
	// A cancelled context kills the program; that is a normal stop.
	stopped := ctx.Err() != nil || errors.Is(tuiErr, tea.ErrProgramKilled)
	cancel()
	out := <-done
	if out.err == nil && tuiErr != nil && !stopped {
		out.err = tuiErr
	}
	return out.result, out.err
}
