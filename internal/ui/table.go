package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/cmon-dev/cmon/internal/monitor"
)

// TableColumn is a RenderSimpleTable column.
type TableColumn struct {
	Title string
	Width int
}

// RenderSimpleTable renders rows as a static table for command output.
// Cells longer than their column are truncated by the table.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := make([]table.Column, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, table.Column{Title: c.Title, Width: c.Width})
	}
	body := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		body = append(body, r)
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(ColorMuted)
	styles.Cell = styles.Cell.Foreground(ColorPrimary)
	// The cursor row is styled even when unfocused.
	styles.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(body),
		table.WithHeight(len(body)+1),
		table.WithStyles(styles),
	)
	return t.View()
}

// CheckRow is one device in the check table.
type CheckRow struct {
	Device string
	Host   string

	CPU    float64
	Memory float64
	State  monitor.ThresholdState

	Processes int
	Suspect   int

	// Err is set when the poll failed; the metric columns are then skipped.
	Err string
}

// RenderCheckTable renders one poll result per device.
func RenderCheckTable(rows []CheckRow, policy monitor.Policy) string {
	if len(rows) == 0 {
		return "No devices configured"
	}

	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	var b strings.Builder
	b.WriteString(headerStyle.Render("  STATUS      DEVICE               CPU        MEMORY     PROCESSES") + "\n")

	for _, row := range rows {
		device := padRight(row.Device, 21)
		if row.Err != "" {
			b.WriteString("  " + padRight(errorStyle.Render(SymbolFail+" FAILED"), 12) +
				device + errorStyle.Render(row.Err) + "\n")
			continue
		}

		procs := fmt.Sprintf("%d", row.Processes)
		if row.Suspect > 0 {
			procs += mutedStyle.Render(fmt.Sprintf(" (%d suspect)", row.Suspect))
		}
		b.WriteString("  " +
			padRight(RenderLevel(row.State.Overall()), 12) +
			device +
			padRight(RenderPercent(row.CPU, policy.CPU), 11) +
			padRight(RenderPercent(row.Memory, policy.Memory), 11) +
			procs + "\n")
	}

	return b.String()
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
