package logs

import (
	"encoding/json"
	"time"

	"github.com/cmon-dev/cmon/internal/monitor"
)

// Summary record events.
const (
	EventCycle = "cycle"
	EventGap   = "gap"
)

// RawRecord is one line of the raw log: a response body exactly as the
// appliance sent it.
type RawRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Cycle     int       `json:"cycle"`
	Endpoint  string    `json:"endpoint"`

	// Data holds the body when it is valid JSON; Text holds it otherwise.
	Data json.RawMessage `json:"data,omitempty"`
	Text string          `json:"text,omitempty"`

	Error string `json:"error,omitempty"`
}

// newRawRecord stores body as JSON when it parses, or as a string.
func newRawRecord(at time.Time, device string, cycle int, endpoint string, body []byte) RawRecord {
	rec := RawRecord{
		Timestamp: at,
		Device:    device,
		Cycle:     cycle,
		Endpoint:  endpoint,
	}
	if len(body) > 0 {
		if json.Valid(body) {
			rec.Data = json.RawMessage(body)
		} else {
			rec.Text = string(body)
		}
	}
	return rec
}

// SummaryRecord is one line of the summary log. Cycle records carry the
// metrics; gap records carry the failure.
type SummaryRecord struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Host      string    `json:"host"`
	Cycle     int       `json:"cycle"`

	CPUPercent       *float64 `json:"cpu_percent,omitempty"`
	CPUCores         int      `json:"cpu_cores,omitempty"`
	MemoryPercent    *float64 `json:"memory_percent,omitempty"`
	MemoryUsedBytes  int64    `json:"memory_used_bytes,omitempty"`
	MemoryTotalBytes int64    `json:"memory_total_bytes,omitempty"`

	CPUStatus      string `json:"cpu_status,omitempty"`
	ConserveStatus string `json:"conserve_status,omitempty"`
	Status         string `json:"status,omitempty"`

	Validated    *bool                   `json:"validated,omitempty"`
	ProcessCount int                     `json:"process_count,omitempty"`
	TopProcess   *monitor.ProcessSample  `json:"top_memory_process,omitempty"`
	Processes    []monitor.ProcessSample `json:"processes,omitempty"`
	Anomalies    []monitor.Anomaly       `json:"anomalies,omitempty"`
	Transitions  []monitor.Transition    `json:"transitions,omitempty"`

	FailureKind string `json:"failure_kind,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
	Error       string `json:"error,omitempty"`
}

func cycleRecord(r monitor.CycleReport) SummaryRecord {
	snap := r.Snapshot
	cpu := snap.CPUPercent
	mem := snap.MemoryPercent
	validated := snap.Validated

	rec := SummaryRecord{
		Event:            EventCycle,
		Timestamp:        snap.Timestamp,
		Device:           r.Target.Name,
		Host:             r.Target.Host,
		Cycle:            r.Cycle,
		CPUPercent:       &cpu,
		CPUCores:         snap.CPUCores,
		MemoryPercent:    &mem,
		MemoryUsedBytes:  snap.MemoryUsedBytes,
		MemoryTotalBytes: snap.MemoryTotalBytes,
		CPUStatus:        r.State.CPU.String(),
		ConserveStatus:   r.State.Memory.String(),
		Status:           r.State.Overall().String(),
		Validated:        &validated,
		ProcessCount:     snap.ProcessCount,
		Processes:        snap.Processes,
		Anomalies:        snap.Anomalies,
		Transitions:      r.Transitions,
	}
	if len(snap.Processes) > 0 {
		top := snap.Processes[0]
		rec.TopProcess = &top
	}
	return rec
}

func gapRecord(g monitor.GapReport) SummaryRecord {
	rec := SummaryRecord{
		Event:       EventGap,
		Timestamp:   g.At,
		Device:      g.Target.Name,
		Host:        g.Target.Host,
		Cycle:       g.Cycle,
		FailureKind: g.Kind,
		Attempts:    g.Attempts,
	}
	if g.Err != nil {
		rec.Error = g.Err.Error()
	}
	return rec
}
