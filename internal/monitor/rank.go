package monitor

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Ranking defaults.
const (
	DefaultTopN           = 30
	DefaultTolerance      = 0.5
	DefaultLeakPercent    = 50.0
	DefaultLowMemoryLimit = 5 * 1024 * 1024
)

// DefaultLowMemoryProcesses are daemons that normally stay tiny. One of them
// growing past the limit usually means a bad reading or a leak.
var DefaultLowMemoryProcesses = []string{"insmod", "getty", "lldptx", "dhcpcd", "kmiglogd"}

// RankOptions controls process ranking and validation.
type RankOptions struct {
	TopN int
	// Tolerance is the allowed gap, in percentage points, between a
	// reported memory percentage and bytes/total.
	Tolerance float64

	// LeakPercent flags any process above this share of total memory.
	// Zero disables the check.
	LeakPercent float64

	LowMemoryProcesses  []string
	LowMemoryLimitBytes int64
}

// DefaultRankOptions returns the standard ranking settings.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		TopN:                DefaultTopN,
		Tolerance:           DefaultTolerance,
		LeakPercent:         DefaultLeakPercent,
		LowMemoryProcesses:  DefaultLowMemoryProcesses,
		LowMemoryLimitBytes: DefaultLowMemoryLimit,
	}
}

// RankResult is the output of RankProcesses.
type RankResult struct {
	Top       []ProcessSample
	Validated bool
	Anomalies []Anomaly
}

// RankProcesses validates every process against totalBytes and returns the
// top N by memory. Order is memory descending, then PID ascending. The input
// slice is not modified.
//
// When totalBytes is zero, percentages cannot be cross-checked: the result
// is marked unvalidated and reported percentages are passed through.
func RankProcesses(procs []ProcessSample, totalBytes int64, opts RankOptions) RankResult {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Tolerance < 0 {
		opts.Tolerance = 0
	}

	validated := totalBytes > 0
	ranked := make([]ProcessSample, len(procs))
	copy(ranked, procs)

	var anomalies []Anomaly
	for i := range ranked {
		p := &ranked[i]
		if !validated {
			if p.ReportedPercent != nil {
				p.MemoryPercent = *p.ReportedPercent
			}
			continue
		}

		expected := float64(p.MemoryBytes) / float64(totalBytes) * 100
		p.MemoryPercent = math.Round(expected*100) / 100

		if p.ReportedPercent != nil {
			diff := math.Abs(*p.ReportedPercent - expected)
			if diff > opts.Tolerance {
				p.Suspect = true
				anomalies = append(anomalies, Anomaly{
					Kind: AnomalySuspectPercent,
					PID:  p.PID,
					Name: p.Name,
					Message: fmt.Sprintf("%s (PID %d) reports %.2f%% but holds %.2f%% of total memory",
						p.Name, p.PID, *p.ReportedPercent, expected),
				})
			}
		}

		if opts.LeakPercent > 0 && expected > opts.LeakPercent {
			anomalies = append(anomalies, Anomaly{
				Kind:    AnomalyPossibleLeak,
				PID:     p.PID,
				Name:    p.Name,
				Message: fmt.Sprintf("%s (PID %d) uses %.1f%% of system memory", p.Name, p.PID, expected),
			})
		}
	}

	if opts.LowMemoryLimitBytes > 0 {
		for _, p := range ranked {
			if p.MemoryBytes > opts.LowMemoryLimitBytes && isLowMemoryProcess(p.Name, opts.LowMemoryProcesses) {
				anomalies = append(anomalies, Anomaly{
					Kind: AnomalyUnexpectedSize,
					PID:  p.PID,
					Name: p.Name,
					Message: fmt.Sprintf("%s (PID %d) uses %.1f MB, expected under %.1f MB",
						p.Name, p.PID, mb(p.MemoryBytes), mb(opts.LowMemoryLimitBytes)),
				})
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MemoryBytes != ranked[j].MemoryBytes {
			return ranked[i].MemoryBytes > ranked[j].MemoryBytes
		}
		return ranked[i].PID < ranked[j].PID
	})

	if len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}

	return RankResult{
		Top:       ranked,
		Validated: validated,
		Anomalies: anomalies,
	}
}

func isLowMemoryProcess(name string, list []string) bool {
	name = strings.ToLower(name)
	for _, n := range list {
		if strings.Contains(name, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func mb(b int64) float64 {
	return float64(b) / (1024 * 1024)
}
