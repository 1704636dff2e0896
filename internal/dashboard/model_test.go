package dashboard

import (
	"errors"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

func TestMain(m *testing.M) {
	ui.DisableColors()
	os.Exit(m.Run())
}

var (
	fw1 = monitor.DeviceTarget{Name: "fw1", Host: "10.0.0.1"}
	fw2 = monitor.DeviceTarget{Name: "fw2", Host: "10.0.0.2"}
)

func newTestModel(cancel func()) Model {
	return NewModel([]monitor.DeviceTarget{fw1, fw2}, monitor.DefaultPolicy(), cancel)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func cycleReport(target monitor.DeviceTarget, cycle int, cpu, mem float64, state monitor.ThresholdState, transitions ...monitor.Transition) CycleCompletedMsg {
	return CycleCompletedMsg{Report: monitor.CycleReport{
		Cycle:  cycle,
		Target: target,
		Snapshot: &monitor.Snapshot{
			Timestamp:     time.Date(2024, 5, 1, 12, 0, cycle, 0, time.UTC),
			Device:        target.Name,
			CPUPercent:    cpu,
			MemoryPercent: mem,
			ProcessCount:  120,
			Processes: []monitor.ProcessSample{
				{PID: 210, Name: "ipsengine", MemoryBytes: 300 << 20},
				{PID: 180, Name: "cmdbsvr", MemoryBytes: 120 << 20, Suspect: true},
			},
		},
		State:       state,
		Transitions: transitions,
	}}
}

func TestNewModel(t *testing.T) {
	m := newTestModel(func() {})

	require.Len(t, m.devices, 2)
	assert.Equal(t, "fw1", m.devices[0].Name)
	assert.Equal(t, "10.0.0.2", m.devices[1].Host)
	assert.Equal(t, monitor.StateStarting, m.devices[0].State)
	assert.False(t, m.devices[0].HasSample)
	assert.Equal(t, 0, m.selected)
	assert.NotNil(t, m.cancelFunc)
}

func TestModel_SessionState(t *testing.T) {
	m := newTestModel(nil)

	m = update(t, m, SessionStateMsg{Device: "fw2", State: monitor.StatePolling})
	assert.Equal(t, monitor.StatePolling, m.devices[1].State)
	assert.Equal(t, monitor.StateStarting, m.devices[0].State)

	// Unknown devices are ignored.
	m = update(t, m, SessionStateMsg{Device: "nope", State: monitor.StateSleeping})
	assert.Equal(t, monitor.StatePolling, m.devices[1].State)
}

func TestModel_CycleCompleted(t *testing.T) {
	m := newTestModel(nil)

	warn := monitor.ThresholdState{CPU: monitor.LevelNormal, Memory: monitor.LevelWarning}
	tr := monitor.Transition{Metric: monitor.MetricMemory, From: monitor.LevelNormal, To: monitor.LevelWarning, Value: 81}

	m = update(t, m, cycleReport(fw1, 1, 10, 70, monitor.ThresholdState{CPU: monitor.LevelNormal, Memory: monitor.LevelNormal}))
	m = update(t, m, cycleReport(fw1, 2, 12, 81, warn, tr))

	d := m.devices[0]
	assert.True(t, d.HasSample)
	assert.Equal(t, 12.0, d.CPU)
	assert.Equal(t, 81.0, d.Memory)
	assert.Equal(t, monitor.LevelWarning, d.Levels.Overall())
	assert.Equal(t, 2, d.Cycles)
	assert.Equal(t, 120, d.Processes)
	assert.Equal(t, 1, d.Suspect)
	assert.Equal(t, "ipsengine", d.TopName)
	require.NotNil(t, d.LastTransition)
	assert.Equal(t, monitor.LevelWarning, d.LastTransition.To)

	assert.Equal(t, []float64{70, 81}, m.history.Memory("fw1", sparklineWidth))
	peak, ok := m.history.Peak("fw1")
	require.True(t, ok)
	assert.Equal(t, 81.0, peak)
}

func TestModel_CycleFailedThenRecovered(t *testing.T) {
	m := newTestModel(nil)

	m = update(t, m, CycleFailedMsg{Gap: monitor.GapReport{
		Cycle: 1, Target: fw2, Kind: "connection", Attempts: 3, Err: errors.New("dial tcp: timeout"),
	}})
	assert.Equal(t, 1, m.devices[1].Gaps)
	assert.Equal(t, "connection: dial tcp: timeout", m.devices[1].LastError)

	m = update(t, m, cycleReport(fw2, 2, 5, 40, monitor.ThresholdState{CPU: monitor.LevelNormal, Memory: monitor.LevelNormal}))
	assert.Empty(t, m.devices[1].LastError)
	assert.Equal(t, 1, m.devices[1].Gaps)
}

func TestModel_SessionStopped(t *testing.T) {
	m := newTestModel(nil)

	m = update(t, m, SessionStoppedMsg{Result: monitor.SessionResult{
		Target: fw1, Reason: monitor.ReasonAuthFailure, Err: errors.New("401 Unauthorized"),
	}})
	assert.Equal(t, monitor.StateStopped, m.devices[0].State)
	assert.Equal(t, monitor.ReasonAuthFailure, m.devices[0].StopReason)
	assert.Contains(t, m.View(), "AUTH FAILURE")
}

func TestModel_Navigation(t *testing.T) {
	m := newTestModel(nil)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, m.selected, "stays on last device")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 1, m.selected)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, m.selected)
}

func TestModel_QuitCancels(t *testing.T) {
	cancelled := false
	m := newTestModel(func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)

	assert.True(t, cancelled)
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, "", m.View())
}

func TestModel_OrchestratorDone(t *testing.T) {
	m := newTestModel(nil)
	m.height = 40

	m = update(t, m, orchestratorDoneMsg{})
	assert.True(t, m.completed)
	assert.Contains(t, m.View(), "Monitoring finished")
}

func TestModel_View(t *testing.T) {
	m := newTestModel(nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})

	view := m.View()
	assert.Contains(t, view, "Conserve Mode Monitor")
	assert.Contains(t, view, "fw1")
	assert.Contains(t, view, "[10.0.0.1]")
	assert.Contains(t, view, "waiting for first sample")
	assert.Contains(t, view, "j/k: navigate")

	crit := monitor.ThresholdState{CPU: monitor.LevelNormal, Memory: monitor.LevelCritical}
	m = update(t, m, cycleReport(fw1, 1, 12.5, 90, crit))
	view = m.View()
	assert.Contains(t, view, "1 critical")
	assert.Contains(t, view, "CPU 12.5%")
	assert.Contains(t, view, "MEM 90.0%")
	assert.Contains(t, view, "✗ CRITICAL")
	assert.Contains(t, view, "Top memory: ipsengine (300.0 MB)")
}

func TestModel_ViewMinimalHidesHostAndDetail(t *testing.T) {
	m := newTestModel(nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 10})

	view := m.View()
	assert.Contains(t, view, "fw1")
	assert.NotContains(t, view, "[10.0.0.1]")
	assert.NotContains(t, view, "j/k: navigate")
}

func TestGetLayoutMode(t *testing.T) {
	assert.Equal(t, LayoutMinimal, GetLayoutMode(79))
	assert.Equal(t, LayoutCompact, GetLayoutMode(80))
	assert.Equal(t, LayoutStandard, GetLayoutMode(120))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "2m05s", formatDuration(125*time.Second))
	assert.Equal(t, "1h01m00s", formatDuration(61*time.Minute))
}
