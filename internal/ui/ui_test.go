package ui

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmon-dev/cmon/internal/monitor"
)

func TestMain(m *testing.M) {
	DisableColors()
	os.Exit(m.Run())
}

func TestLevelSymbolAndColor(t *testing.T) {
	tests := []struct {
		level  monitor.Level
		symbol string
		color  lipgloss.Color
	}{
		{monitor.LevelNormal, SymbolSuccess, ColorSuccess},
		{monitor.LevelWarning, SymbolWarning, ColorWarning},
		{monitor.LevelCritical, SymbolFail, ColorError},
		{monitor.LevelUnknown, SymbolPending, ColorMuted},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.symbol, LevelSymbol(tt.level))
			assert.Equal(t, tt.color, LevelColor(tt.level))
		})
	}
}

func TestRenderLevel_Plain(t *testing.T) {
	assert.Equal(t, "⚠ WARNING", RenderLevel(monitor.LevelWarning))
	assert.Equal(t, "88.0%", RenderPercent(88, monitor.Bands{Warning: 79, Critical: 88}))
}

func TestRenderLevel_Colored(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI)
	defer DisableColors()

	out := RenderLevel(monitor.LevelCritical)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "CRITICAL")
}

func TestSetColorMode(t *testing.T) {
	defer DisableColors()

	SetColorMode(ColorAlways, &bytes.Buffer{})
	assert.NotEqual(t, termenv.Ascii, lipgloss.ColorProfile())

	SetColorMode(ColorNever, &bytes.Buffer{})
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile())

	SetColorMode(ColorAlways, &bytes.Buffer{})
	SetColorMode(ColorAuto, &bytes.Buffer{})
	assert.Equal(t, termenv.Ascii, lipgloss.ColorProfile(), "a buffer is not a terminal")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestStyleLine_ColoredBySeverity(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI)
	defer DisableColors()

	prefix := "[2024-05-01 12:00:00] [fw1] "
	tests := []struct {
		line  string
		style lipgloss.Style
	}{
		{"TRANSITION: memory NORMAL -> WARNING at 81.0%", transitionLine},
		{"✗ CRITICAL: Memory at 90.0% - CONSERVE MODE ACTIVE OR IMMINENT!", criticalLine},
		{"AUTH FAILURE: credential rejected", criticalLine},
		{"ERROR: cycle 3 skipped - device unreachable after 3 attempt(s): timeout", errorLine},
		{"⚠ WARNING: Memory at 81.0% - 7.0% from conserve mode", warningLine},
		{"Connection failure (attempt 1/3): refused - retrying in 1s", warningLine},
		{"✓ All memory readings validated successfully", normalLine},
		{"SNAPSHOT #4", headingLine},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.style.Render(prefix+tt.line), StyleLine(prefix+tt.line))
		})
	}

	plain := prefix + "CPU Cores: 4 cores detected"
	assert.Equal(t, plain, StyleLine(plain))
}

func TestConsole_WritesWholeBlocks(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Write([]byte("line one\nline two\n"))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for i := 0; i < len(lines); i += 2 {
		assert.Equal(t, "line one", lines[i])
		assert.Equal(t, "line two", lines[i+1])
	}
}

func TestConsole_PartialLine(t *testing.T) {
	var out bytes.Buffer
	n, err := NewConsole(&out).Write([]byte("done\npartial"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Equal(t, "done\npartial", out.String())
}

func TestRenderCheckTable(t *testing.T) {
	policy := monitor.DefaultPolicy()
	rows := []CheckRow{
		{
			Device: "fw1", Host: "10.0.0.1", CPU: 12.5, Memory: 81,
			State:     monitor.ThresholdState{CPU: monitor.LevelNormal, Memory: monitor.LevelWarning},
			Processes: 120, Suspect: 2,
		},
		{Device: "fw2", Host: "10.0.0.2", Err: "credential rejected"},
	}

	out := RenderCheckTable(rows, policy)
	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "⚠ WARNING")
	assert.Contains(t, out, "12.5%")
	assert.Contains(t, out, "81.0%")
	assert.Contains(t, out, "120 (2 suspect)")
	assert.Contains(t, out, "✗ FAILED")
	assert.Contains(t, out, "credential rejected")

	assert.Equal(t, "No devices configured", RenderCheckTable(nil, policy))
}

func TestRenderSimpleTable(t *testing.T) {
	out := RenderSimpleTable(
		[]TableColumn{{Title: "RUN", Width: 20}, {Title: "SIZE", Width: 8}},
		[][]string{{"fortigate_fw1", "12 kB"}},
	)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "fortigate_fw1")
	assert.Empty(t, RenderSimpleTable(nil, nil))
}

func TestNewSpinner(t *testing.T) {
	sp := NewSpinner()
	assert.Equal(t, SpinnerFrames.Frames, sp.Spinner.Frames)
}
