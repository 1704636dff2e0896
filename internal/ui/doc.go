// Package ui provides the terminal styling shared by cmon's console output,
// the check table and the live dashboard.
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess (green)  - NORMAL band
//	ColorWarning (yellow) - WARNING band, retries
//	ColorError   (red)    - CRITICAL band, failures
//	ColorInfo    (cyan)   - transitions
//	ColorMuted   (gray)   - secondary text
//
// SetColorMode applies the output.color setting (auto, always, never).
//
// Console wraps the text log echo and colors each line by severity:
//
//	echo := ui.NewConsole(os.Stdout)
//	opts := cfg.LogOptions(echo)
package ui
