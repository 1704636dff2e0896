package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

// sparklineWidth is how many memory samples the sparkline shows.
const sparklineWidth = 20

// DeviceEntry holds the state of a single device in the dashboard.
type DeviceEntry struct {
	Name  string
	Host  string
	State monitor.SessionState

	// HasSample is false until the first cycle completes.
	HasSample bool
	CPU       float64
	Memory    float64
	Levels    monitor.ThresholdState
	Processes int
	Suspect   int
	TopName   string
	TopBytes  int64

	Cycles         int
	Gaps           int
	LastPoll       time.Time
	LastTransition *monitor.Transition
	LastError      string
	StopReason     monitor.StopReason
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	devices    []DeviceEntry
	index      map[string]int
	history    *monitor.History
	policy     monitor.Policy
	spinner    spinner.Model
	selected   int
	width      int
	height     int
	completed  bool
	err        error
	cancelFunc context.CancelFunc
	quitting   bool
	startTime  time.Time
}

// NewModel creates a new dashboard model listing targets.
func NewModel(targets []monitor.DeviceTarget, policy monitor.Policy, cancelFunc context.CancelFunc) Model {
	m := Model{
		devices:    make([]DeviceEntry, len(targets)),
		index:      make(map[string]int, len(targets)),
		history:    monitor.NewHistory(monitor.DefaultHistorySize),
		policy:     policy,
		spinner:    ui.NewSpinner(),
		cancelFunc: cancelFunc,
		startTime:  time.Now(),
	}
	for i, t := range targets {
		m.devices[i] = DeviceEntry{Name: t.Name, Host: t.Host, State: monitor.StateStarting}
		m.index[t.Name] = i
	}
	return m
}

// Init returns the initial command for the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionStateMsg:
		if d := m.device(msg.Device); d != nil {
			d.State = msg.State
		}
		return m, nil

	case CycleCompletedMsg:
		r := msg.Report
		d := m.device(r.Target.Name)
		if d == nil || r.Snapshot == nil {
			return m, nil
		}
		snap := r.Snapshot
		d.HasSample = true
		d.CPU = snap.CPUPercent
		d.Memory = snap.MemoryPercent
		d.Levels = r.State
		d.Processes = snap.ProcessCount
		d.Suspect = snap.SuspectCount()
		d.TopName, d.TopBytes = "", 0
		if len(snap.Processes) > 0 {
			d.TopName = snap.Processes[0].Name
			d.TopBytes = snap.Processes[0].MemoryBytes
		}
		d.Cycles = r.Cycle
		d.LastPoll = snap.Timestamp
		d.LastError = ""
		if n := len(r.Transitions); n > 0 {
			t := r.Transitions[n-1]
			d.LastTransition = &t
		}
		m.history.Push(d.Name, snap)
		return m, nil

	case CycleFailedMsg:
		if d := m.device(msg.Gap.Target.Name); d != nil {
			d.Gaps++
			d.Cycles = msg.Gap.Cycle
			if msg.Gap.Err != nil {
				d.LastError = fmt.Sprintf("%s: %v", msg.Gap.Kind, msg.Gap.Err)
			}
		}
		return m, nil

	case SessionStoppedMsg:
		if d := m.device(msg.Result.Target.Name); d != nil {
			d.State = monitor.StateStopped
			d.StopReason = msg.Result.Reason
			if msg.Result.Err != nil {
				d.LastError = msg.Result.Err.Error()
			}
		}
		return m, nil

	case orchestratorDoneMsg:
		m.completed = true
		m.err = msg.err
		// Don't quit immediately - let user see results
		return m, nil
	}

	return m, nil
}

func (m Model) device(name string) *DeviceEntry {
	i, ok := m.index[name]
	if !ok {
		return nil
	}
	return &m.devices[i]
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.selected < len(m.devices)-1 {
			m.selected++
		}
		return m, nil

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "g", "home":
		m.selected = 0
		return m, nil

	case "G", "end":
		if len(m.devices) > 0 {
			m.selected = len(m.devices) - 1
		}
		return m, nil

	case "q", "ctrl+c":
		if m.cancelFunc != nil {
			m.cancelFunc()
		}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n\n")

	layout := GetLayoutMode(m.width)
	for i, d := range m.devices {
		sb.WriteString(m.renderDeviceLine(d, i == m.selected, layout))
		sb.WriteString("\n")
	}

	if len(m.devices) > 0 && layout != LayoutMinimal {
		sb.WriteString("\n")
		sb.WriteString(m.renderDetail(m.devices[m.selected]))
	}

	if ShowFooter(m.height) {
		sb.WriteString("\n")
		sb.WriteString(m.renderFooter())
	}

	return sb.String()
}

// renderHeader renders the dashboard header.
func (m Model) renderHeader() string {
	counts := make(map[monitor.Level]int)
	stopped := 0
	for _, d := range m.devices {
		if d.State == monitor.StateStopped {
			stopped++
		}
		if d.HasSample {
			counts[d.Levels.Overall()]++
		}
	}

	parts := []string{}
	for _, l := range []monitor.Level{monitor.LevelCritical, monitor.LevelWarning, monitor.LevelNormal} {
		if counts[l] > 0 {
			parts = append(parts, ui.LevelStyle(l).Render(fmt.Sprintf("%d %s", counts[l], strings.ToLower(l.String()))))
		}
	}
	if stopped > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d stopped", stopped)))
	}

	status := strings.Join(parts, mutedStyle.Render(" | "))
	elapsed := mutedStyle.Render(" " + formatDuration(time.Since(m.startTime)))
	if m.completed {
		elapsed = mutedStyle.Render(" finished after" + elapsed)
	}

	return headerStyle.Render("Conserve Mode Monitor") + " " + status + elapsed
}

// renderDeviceLine renders a single device entry.
func (m Model) renderDeviceLine(d DeviceEntry, selected bool, layout LayoutMode) string {
	line := m.stateSymbol(d) + " " + padRight(d.Name, 18)

	if layout != LayoutMinimal {
		line += mutedStyle.Render(padRight("["+d.Host+"]", 20))
	}

	line += padRight(m.renderState(d), 15)

	if d.HasSample {
		line += "CPU " + padRight(ui.RenderPercent(d.CPU, m.policy.CPU), 7) +
			"MEM " + padRight(ui.RenderPercent(d.Memory, m.policy.Memory), 7)
		if layout == LayoutStandard {
			line += ui.RenderSparkline(m.history.Memory(d.Name, sparklineWidth), sparklineWidth, m.policy.Memory) + " "
		}
	} else {
		line += mutedStyle.Render(padRight("waiting for first sample", 25))
	}

	if d.Gaps > 0 {
		line += errorStyle.Render(fmt.Sprintf("%d gap(s)", d.Gaps))
	}

	if selected {
		return selectedRowStyle.Render(line)
	}
	return rowStyle.Render(line)
}

func (m Model) stateSymbol(d DeviceEntry) string {
	switch {
	case d.State == monitor.StatePolling:
		return m.spinner.View()
	case d.StopReason == monitor.ReasonAuthFailure:
		return errorStyle.Render(ui.SymbolFail)
	case d.State == monitor.StateStopped:
		return mutedStyle.Render(ui.SymbolSkipped)
	case d.HasSample:
		return ui.LevelStyle(d.Levels.Overall()).Render(ui.LevelSymbol(d.Levels.Overall()))
	default:
		return mutedStyle.Render(ui.SymbolPending)
	}
}

func (m Model) renderState(d DeviceEntry) string {
	if d.StopReason == monitor.ReasonAuthFailure {
		return errorStyle.Render("AUTH FAILURE")
	}
	return stateStyle(d.State).Render(d.State.String())
}

// renderDetail renders the selected device's details.
func (m Model) renderDetail(d DeviceEntry) string {
	var lines []string
	lines = append(lines, headerStyle.Render(d.Name)+" "+mutedStyle.Render(d.Host))

	if d.HasSample {
		lines = append(lines,
			fmt.Sprintf("  CPU    %s", ui.RenderLevel(d.Levels.CPU)),
			fmt.Sprintf("  Memory %s", ui.RenderLevel(d.Levels.Memory)),
		)
		if peak, ok := m.history.Peak(d.Name); ok {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  Peak memory this run: %.1f%%", peak)))
		}
		procs := fmt.Sprintf("  Processes: %d", d.Processes)
		if d.Suspect > 0 {
			procs += errorStyle.Render(fmt.Sprintf(" (%d suspect)", d.Suspect))
		}
		lines = append(lines, procs)
		if d.TopName != "" {
			lines = append(lines, fmt.Sprintf("  Top memory: %s (%.1f MB)", d.TopName, float64(d.TopBytes)/(1024*1024)))
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  Cycle %d, last poll %s", d.Cycles, d.LastPoll.Format("15:04:05"))))
	}

	if t := d.LastTransition; t != nil {
		lines = append(lines, transitionStyle.Render(fmt.Sprintf("  Last transition: %s %s -> %s at %.1f%% (%s)",
			t.Metric, t.From, t.To, t.Value, t.At.Format("15:04:05"))))
	}
	if d.LastError != "" {
		lines = append(lines, errorStyle.Render("  Last error: "+d.LastError))
	}

	return strings.Join(lines, "\n") + "\n"
}

// renderFooter renders the footer with keyboard shortcuts.
func (m Model) renderFooter() string {
	if m.completed {
		return mutedStyle.Render("Monitoring finished. Press q to exit")
	}
	return mutedStyle.Render("j/k: navigate | q: stop monitoring and exit")
}

// padRight pads s to width visible cells, leaving at least one space.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-w)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mins, secs)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
