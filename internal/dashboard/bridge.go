package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cmon-dev/cmon/internal/monitor"
)

// Bridge implements monitor.Observer and forwards events to the Bubble Tea
// program via program.Send(). This is goroutine-safe.
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a new bridge that forwards events to the given program.
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{program: program}
}

// SessionState forwards a session state change to the TUI.
func (b *Bridge) SessionState(target monitor.DeviceTarget, state monitor.SessionState) {
	b.program.Send(SessionStateMsg{Device: target.Name, State: state})
}

// CycleCompleted forwards a completed cycle to the TUI.
func (b *Bridge) CycleCompleted(report monitor.CycleReport) {
	b.program.Send(CycleCompletedMsg{Report: report})
}

// CycleFailed forwards a skipped cycle to the TUI.
func (b *Bridge) CycleFailed(gap monitor.GapReport) {
	b.program.Send(CycleFailedMsg{Gap: gap})
}

// SessionStopped forwards the end of a session to the TUI.
func (b *Bridge) SessionStopped(result monitor.SessionResult) {
	b.program.Send(SessionStoppedMsg{Result: result})
}

// OrchestratorDone signals that the orchestrator has finished.
func (b *Bridge) OrchestratorDone(err error) {
	b.program.Send(orchestratorDoneMsg{err: err})
}

var _ monitor.Observer = (*Bridge)(nil)
