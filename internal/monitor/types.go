package monitor

import (
	"fmt"
	"strings"
	"time"
)

// DeviceTarget identifies one monitored appliance.
type DeviceTarget struct {
	Name   string
	Host   string
	APIKey string
}

// String returns "name (host)" for log lines. The API key is never included.
func (t DeviceTarget) String() string {
	if t.Name == t.Host || t.Name == "" {
		return t.Host
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Host)
}

// ProcessSample is one process as observed in a single cycle.
type ProcessSample struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`

	// CPUPercent is nil until a percentage is known, either reported by the
	// appliance or derived from two tick samples.
	CPUPercent *float64 `json:"cpu_percent,omitempty"`
	CPUTicks   int64    `json:"cpu_ticks,omitempty"`
	HasTicks   bool     `json:"-"`

	MemoryBytes   int64   `json:"memory_bytes"`
	MemoryPercent float64 `json:"memory_percent"`

	// ReportedPercent is the appliance's own memory percentage, if any.
	ReportedPercent *float64 `json:"reported_memory_percent,omitempty"`
	Suspect         bool     `json:"suspect,omitempty"`
}

// AnomalyKind categorizes a validation finding.
type AnomalyKind string

const (
	// AnomalySuspectPercent: reported percentage disagrees with bytes/total.
	AnomalySuspectPercent AnomalyKind = "suspect_percentage"
	// AnomalyPossibleLeak: one process holds an implausible share of memory.
	AnomalyPossibleLeak AnomalyKind = "possible_leak"
	// AnomalyUnexpectedSize: a normally tiny daemon is unusually large.
	AnomalyUnexpectedSize AnomalyKind = "unexpected_size"
)

// Anomaly is a validation warning about one process.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	PID     int         `json:"pid"`
	Name    string      `json:"name"`
	Message string      `json:"message"`
}

// RawResponse holds the unparsed bodies a snapshot was built from.
type RawResponse struct {
	Status    []byte
	Processes []byte
}

// Snapshot is one cycle's view of a device.
type Snapshot struct {
	Timestamp time.Time
	Device    string
	Host      string

	CPUPercent float64
	CPUCores   int

	MemoryPercent    float64
	MemoryUsedBytes  int64
	MemoryTotalBytes int64

	// ProcessCount is the number of processes the appliance reported, before
	// the top-N cut.
	ProcessCount int
	Processes    []ProcessSample

	// Validated is false when total memory was unknown, so per-process
	// percentages could not be cross-checked.
	Validated bool
	Anomalies []Anomaly

	Raw RawResponse
}

// SuspectCount returns how many ranked processes carry the suspect flag.
func (s *Snapshot) SuspectCount() int {
	n := 0
	for _, p := range s.Processes {
		if p.Suspect {
			n++
		}
	}
	return n
}

// Level is a threshold band.
type Level int

const (
	LevelUnknown Level = iota
	LevelNormal
	LevelWarning
	LevelCritical
)

// String returns the upper-case band name used in logs.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "NORMAL":
		*l = LevelNormal
	case "WARNING":
		*l = LevelWarning
	case "CRITICAL":
		*l = LevelCritical
	case "UNKNOWN", "":
		*l = LevelUnknown
	default:
		return fmt.Errorf("unknown level %q", string(text))
	}
	return nil
}

// Metric names used in transitions.
const (
	MetricCPU    = "cpu"
	MetricMemory = "memory"
)

// ThresholdState is the last known band per metric for one device.
type ThresholdState struct {
	CPU            Level
	Memory         Level
	LastTransition time.Time
}

// Overall returns the more severe of the CPU and memory bands.
func (s ThresholdState) Overall() Level {
	if s.CPU > s.Memory {
		return s.CPU
	}
	return s.Memory
}

// Transition records a metric moving between bands.
type Transition struct {
	Metric string    `json:"metric"`
	From   Level     `json:"from"`
	To     Level     `json:"to"`
	Value  float64   `json:"value"`
	At     time.Time `json:"at"`
}

// Escalation reports whether the metric moved to a more severe band.
func (t Transition) Escalation() bool {
	return t.To > t.From
}

// SessionState is the lifecycle state of a device session.
type SessionState int

const (
	StateStarting SessionState = iota
	StatePolling
	StateSleeping
	StateErrorBackoff
	StateStopping
	StateStopped
)

// String returns the display name for the state.
func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StatePolling:
		return "POLLING"
	case StateSleeping:
		return "SLEEPING"
	case StateErrorBackoff:
		return "ERROR_BACKOFF"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// StopReason explains why a session ended.
type StopReason string

const (
	ReasonShutdown     StopReason = "shutdown"
	ReasonAuthFailure  StopReason = "auth_failure"
	ReasonLimitReached StopReason = "limit_reached"
)

// CycleReport is everything produced by one successful cycle.
type CycleReport struct {
	Cycle       int
	Target      DeviceTarget
	Snapshot    *Snapshot
	State       ThresholdState
	Transitions []Transition
	// FirstSample is true on the first successful cycle, when CPU from
	// ticks cannot be derived yet and no transitions are possible.
	FirstSample bool
	Duration    time.Duration
}

// GapReport describes a cycle that produced no snapshot.
type GapReport struct {
	Cycle    int
	Target   DeviceTarget
	At       time.Time
	Kind     string
	Attempts int
	Err      error

	// Endpoint and Payload carry the offending response for malformed or
	// rejected requests, when one was received.
	Endpoint string
	Payload  []byte
}

// SessionResult summarizes a finished session.
type SessionResult struct {
	Target DeviceTarget
	Reason StopReason
	Cycles int
	Gaps   int
	Err    error
}
