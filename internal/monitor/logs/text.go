package logs

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

var rule = strings.Repeat("=", 80)

// MemoryMessage describes memory usage relative to the conserve mode bands.
func MemoryMessage(memory float64, b monitor.Bands) string {
	switch b.Classify(memory) {
	case monitor.LevelCritical:
		return fmt.Sprintf("%s CRITICAL: Memory at %.1f%% - CONSERVE MODE ACTIVE OR IMMINENT!", ui.SymbolFail, memory)
	case monitor.LevelWarning:
		return fmt.Sprintf("%s WARNING: Memory at %.1f%% - %.1f%% from conserve mode", ui.SymbolWarning, memory, b.Critical-memory)
	default:
		return fmt.Sprintf("%s NORMAL: Memory at %.1f%% - %.1f%% margin to warning threshold", ui.SymbolSuccess, memory, b.Warning-memory)
	}
}

// FormatCycle renders a cycle as the text log block.
func FormatCycle(r monitor.CycleReport, policy monitor.Policy) []string {
	snap := r.Snapshot
	lines := []string{
		rule,
		fmt.Sprintf("SNAPSHOT #%d", r.Cycle),
		rule,
		fmt.Sprintf("CPU Usage: %.1f%% (%s)", snap.CPUPercent, r.State.CPU),
		fmt.Sprintf("Memory Usage: %.1f%% (%s)", snap.MemoryPercent, r.State.Memory),
	}
	if snap.MemoryTotalBytes > 0 {
		lines = append(lines, fmt.Sprintf("Total Memory: %s (%d MB)",
			humanize.IBytes(uint64(snap.MemoryTotalBytes)), snap.MemoryTotalBytes/(1024*1024)))
	}
	lines = append(lines, MemoryMessage(snap.MemoryPercent, policy.Memory))
	if snap.CPUCores > 0 {
		lines = append(lines, fmt.Sprintf("CPU Cores: %d cores detected", snap.CPUCores))
	}

	lines = append(lines, "")
	if len(snap.Processes) == 0 {
		lines = append(lines, "No processes found")
	} else {
		lines = append(lines, fmt.Sprintf("Top %d Processes by Memory Usage (from %d total)", len(snap.Processes), snap.ProcessCount))
		if r.FirstSample {
			lines = append(lines, "Note: First snapshot shows cumulative CPU ticks (t*). Next snapshot will show real-time %.")
		}
		lines = append(lines,
			fmt.Sprintf("    %-8s%-30s%-15s%-20s", "PID", "Process Name", "CPU", "Memory"),
			"    "+strings.Repeat("-", 73),
		)
		for i, p := range snap.Processes {
			row := fmt.Sprintf("  %2d. %-8d%-30s%-15s%-20s", i+1, p.PID, truncateName(p.Name, 28),
				formatCPU(p, r.FirstSample), formatMemory(p, snap.Validated))
			if p.Suspect {
				row += " [SUSPECT]"
			}
			lines = append(lines, strings.TrimRight(row, " "))
		}
	}

	switch {
	case !snap.Validated:
		lines = append(lines, "", ui.SymbolWarning+" Total memory unknown: process percentages not validated")
	case len(snap.Anomalies) > 0:
		lines = append(lines, "", ui.SymbolWarning+" VALIDATION WARNINGS:")
		for _, a := range snap.Anomalies {
			lines = append(lines, "  "+a.Message)
		}
	default:
		lines = append(lines, "", ui.SymbolSuccess+" All memory readings validated successfully")
	}

	if len(r.Transitions) > 0 {
		lines = append(lines, "")
		for _, t := range r.Transitions {
			lines = append(lines, fmt.Sprintf("TRANSITION: %s %s -> %s at %.1f%%", t.Metric, t.From, t.To, t.Value))
		}
	}

	lines = append(lines, formatSystemSummary(r, policy)...)
	return lines
}

func formatSystemSummary(r monitor.CycleReport, policy monitor.Policy) []string {
	snap := r.Snapshot
	lines := []string{
		"",
		rule,
		"SYSTEM SUMMARY - " + r.Target.Name,
		rule,
		fmt.Sprintf("CPU:    %.1f%% (%s)", snap.CPUPercent, r.State.CPU),
		"Memory: " + MemoryMessage(snap.MemoryPercent, policy.Memory),
	}
	if len(snap.Processes) > 0 {
		top := snap.Processes[0]
		lines = append(lines, fmt.Sprintf("Top Memory: %s (PID %d) - %s", top.Name, top.PID, formatMemory(top, snap.Validated)))
	}
	return append(lines, rule, "")
}

// FormatGap renders a failed cycle.
func FormatGap(g monitor.GapReport) []string {
	switch g.Kind {
	case "auth":
		return []string{fmt.Sprintf("ERROR: cycle %d - credential rejected: %v", g.Cycle, g.Err)}
	case "malformed":
		return []string{fmt.Sprintf("WARNING: cycle %d skipped - malformed response: %v (raw payload saved)", g.Cycle, g.Err)}
	default:
		return []string{fmt.Sprintf("ERROR: cycle %d skipped - device unreachable after %d attempt(s): %v", g.Cycle, g.Attempts, g.Err)}
	}
}

func formatCPU(p monitor.ProcessSample, first bool) string {
	switch {
	case p.CPUPercent != nil:
		return fmt.Sprintf("%.1f%%", *p.CPUPercent)
	case p.HasTicks && first:
		return fmt.Sprintf("%dt*", p.CPUTicks)
	case p.HasTicks:
		return fmt.Sprintf("%dt", p.CPUTicks)
	default:
		return "N/A"
	}
}

func formatMemory(p monitor.ProcessSample, validated bool) string {
	mb := float64(p.MemoryBytes) / (1024 * 1024)
	if validated || p.MemoryPercent > 0 {
		return fmt.Sprintf("%.1fMB (%.3f%%)", mb, p.MemoryPercent)
	}
	return fmt.Sprintf("%.1fMB", mb)
}

func truncateName(name string, n int) string {
	r := []rune(name)
	if len(r) <= n {
		return name
	}
	return string(r[:n])
}
