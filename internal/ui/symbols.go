package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Normal band, check passed
	SymbolFail     = "✗" // Critical band, check failed
	SymbolWarning  = "⚠" // Warning band
	SymbolPending  = "○" // Session not yet polled
	SymbolProgress = "◐" // Poll in progress
	SymbolComplete = "●" // Session active
	SymbolSkipped  = "⊘" // Cycle skipped
)
