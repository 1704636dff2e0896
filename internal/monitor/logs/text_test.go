package logs

import (
	"strings"
	"testing"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/stretchr/testify/assert"
)

func TestMemoryMessage(t *testing.T) {
	b := monitor.DefaultPolicy().Memory

	tests := []struct {
		memory float64
		want   string
	}{
		{50, "NORMAL: Memory at 50.0% - 29.0% margin to warning threshold"},
		{79, "WARNING: Memory at 79.0% - 9.0% from conserve mode"},
		{88, "CRITICAL: Memory at 88.0% - CONSERVE MODE ACTIVE OR IMMINENT!"},
	}
	for _, tt := range tests {
		assert.Contains(t, MemoryMessage(tt.memory, b), tt.want)
	}
}

func TestFormatCycle_FirstSample(t *testing.T) {
	r := sampleReport(1)
	r.FirstSample = true
	r.Transitions = nil
	r.Snapshot.Anomalies = nil

	text := strings.Join(FormatCycle(r, monitor.DefaultPolicy()), "\n")

	assert.Contains(t, text, "First snapshot shows cumulative CPU ticks")
	assert.Contains(t, text, "880t*")
	assert.Contains(t, text, "4.2%")
	assert.Contains(t, text, "All memory readings validated successfully", "validation runs on the first sample too")
	assert.NotContains(t, text, "TRANSITION")
}

func TestFormatCycle_Unvalidated(t *testing.T) {
	r := sampleReport(2)
	r.Snapshot.Validated = false
	r.Snapshot.MemoryTotalBytes = 0
	r.Snapshot.Processes[1].MemoryPercent = 0

	text := strings.Join(FormatCycle(r, monitor.DefaultPolicy()), "\n")

	assert.Contains(t, text, "not validated")
	assert.NotContains(t, text, "Total Memory")
	assert.Contains(t, text, "120.0MB")
	assert.NotContains(t, text, "120.0MB (")
}

func TestFormatCycle_Clean(t *testing.T) {
	r := sampleReport(2)
	r.Snapshot.Anomalies = nil

	text := strings.Join(FormatCycle(r, monitor.DefaultPolicy()), "\n")
	assert.Contains(t, text, "All memory readings validated successfully")
	assert.Contains(t, text, "Top 2 Processes by Memory Usage (from 120 total)", "header counts the listed processes")
	assert.Contains(t, text, "880t")
	assert.NotContains(t, text, "880t*")
}

func TestFormatCycle_NoProcesses(t *testing.T) {
	r := sampleReport(2)
	r.Snapshot.Processes = nil

	text := strings.Join(FormatCycle(r, monitor.DefaultPolicy()), "\n")
	assert.Contains(t, text, "No processes found")
	assert.NotContains(t, text, "Top Memory:")
}

func TestFormatGap(t *testing.T) {
	assert.Contains(t, FormatGap(monitor.GapReport{Cycle: 1, Kind: "auth"})[0], "credential rejected")
	assert.Contains(t, FormatGap(monitor.GapReport{Cycle: 1, Kind: "malformed"})[0], "malformed response")
	assert.Contains(t, FormatGap(monitor.GapReport{Cycle: 1, Kind: "connection", Attempts: 3})[0], "3 attempt(s)")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "abc", truncateName("abc", 28))
	assert.Equal(t, "abcde", truncateName("abcdefgh", 5))
}
