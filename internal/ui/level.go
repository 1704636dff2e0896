package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cmon-dev/cmon/internal/monitor"
)

// LevelColor maps a threshold level onto the palette.
func LevelColor(l monitor.Level) lipgloss.Color {
	switch l {
	case monitor.LevelCritical:
		return ColorError
	case monitor.LevelWarning:
		return ColorWarning
	case monitor.LevelNormal:
		return ColorSuccess
	default:
		return ColorMuted
	}
}

// LevelSymbol returns the status symbol for a level.
func LevelSymbol(l monitor.Level) string {
	switch l {
	case monitor.LevelCritical:
		return SymbolFail
	case monitor.LevelWarning:
		return SymbolWarning
	case monitor.LevelNormal:
		return SymbolSuccess
	default:
		return SymbolPending
	}
}

// LevelStyle returns the foreground style for a level. Critical is bold.
func LevelStyle(l monitor.Level) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(LevelColor(l))
	if l == monitor.LevelCritical {
		s = s.Bold(true)
	}
	return s
}

// RenderLevel renders "<symbol> LEVEL" in the level's color.
func RenderLevel(l monitor.Level) string {
	return LevelStyle(l).Render(LevelSymbol(l) + " " + l.String())
}

// RenderPercent renders a percentage colored by the band it falls in.
func RenderPercent(value float64, b monitor.Bands) string {
	return LevelStyle(b.Classify(value)).Render(formatPercent(value))
}
