package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Color palette using ANSI color codes for terminal compatibility.
//   RED    -> ANSI 1
//   GREEN  -> ANSI 2
//   YELLOW -> ANSI 3
//   BLUE   -> ANSI 4
//   CYAN   -> ANSI 6
//   GRAY   -> ANSI 8 (bright black)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Color modes accepted by SetColorMode.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetColorMode picks the lipgloss color profile for output written to w.
// auto keeps colors only when w is a terminal and NO_COLOR is unset.
func SetColorMode(mode string, w io.Writer) {
	switch mode {
	case ColorNever:
		DisableColors()
	case ColorAlways:
		profile := termenv.EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
		lipgloss.SetColorProfile(profile)
	default:
		if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
			DisableColors()
		}
	}
}

// DisableColors switches all styles to plain text.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
