package dashboard

import (
	"github.com/cmon-dev/cmon/internal/monitor"
)

// SessionStateMsg signals a device session changed state.
type SessionStateMsg struct {
	Device string
	State  monitor.SessionState
}

// CycleCompletedMsg carries a successful cycle.
type CycleCompletedMsg struct {
	Report monitor.CycleReport
}

// CycleFailedMsg carries a cycle that produced no snapshot.
type CycleFailedMsg struct {
	Gap monitor.GapReport
}

// SessionStoppedMsg signals a device session ended.
type SessionStoppedMsg struct {
	Result monitor.SessionResult
}

// orchestratorDoneMsg signals every session has stopped.
type orchestratorDoneMsg struct {
	err error
}
