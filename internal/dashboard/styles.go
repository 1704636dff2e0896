package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

// Width at which the host column, then the sparkline, are shown.
const (
	widthWithHost      = 80
	widthWithSparkline = 120
)

// Below this height the footer is dropped.
const minFooterHeight = 20

// LayoutMode picks which device line columns fit the terminal.
type LayoutMode int

const (
	LayoutMinimal LayoutMode = iota
	LayoutCompact
	LayoutStandard
)

var (
	rowStyle         = lipgloss.NewStyle().Padding(0, 1)
	selectedRowStyle = rowStyle.Background(lipgloss.Color("#1a1a2e"))

	mutedStyle      = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	errorStyle      = lipgloss.NewStyle().Foreground(ui.ColorError)
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary)
	transitionStyle = lipgloss.NewStyle().Bold(true).Foreground(ui.ColorInfo)
)

// stateStyles colors the session state column. Missing states render muted.
var stateStyles = map[monitor.SessionState]lipgloss.Style{
	monitor.StateSleeping:     lipgloss.NewStyle().Foreground(ui.ColorInfo),
	monitor.StateErrorBackoff: lipgloss.NewStyle().Foreground(ui.ColorWarning),
}

func stateStyle(s monitor.SessionState) lipgloss.Style {
	if style, ok := stateStyles[s]; ok {
		return style
	}
	return mutedStyle
}

// GetLayoutMode returns the layout mode for a terminal width.
func GetLayoutMode(width int) LayoutMode {
	switch {
	case width >= widthWithSparkline:
		return LayoutStandard
	case width >= widthWithHost:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter reports whether the terminal is tall enough for the footer.
func ShowFooter(height int) bool {
	return height >= minFooterHeight
}
