package monitor

import (
	"context"
	"time"

	"github.com/cmon-dev/cmon/pkg/fortios"
)

// Fetcher retrieves one unranked snapshot from a device. Errors should carry
// a fortios.Kind; anything unclassified is treated as a connection failure.
type Fetcher interface {
	Fetch(ctx context.Context, target DeviceTarget) (*Snapshot, error)
}

// Releaser is implemented by fetchers holding per-device resources. A
// session calls Release once it has stopped for good.
type Releaser interface {
	Release(target DeviceTarget)
}

// APIFetcher fetches snapshots over the FortiOS REST API.
type APIFetcher struct {
	pool *Pool
	now  func() time.Time
}

// NewAPIFetcher creates a fetcher backed by pool.
func NewAPIFetcher(pool *Pool) *APIFetcher {
	return &APIFetcher{pool: pool, now: time.Now}
}

// Fetch queries performance status and then the process table. Processes are
// returned unranked with their reported percentages kept aside.
func (f *APIFetcher) Fetch(ctx context.Context, target DeviceTarget) (*Snapshot, error) {
	client := f.pool.Get(target)
	at := f.now()

	status, statusRaw, err := client.PerformanceStatus(ctx)
	if err != nil {
		return nil, err
	}

	procs, procRaw, err := client.RunningProcesses(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]ProcessSample, len(procs))
	for i, p := range procs {
		samples[i] = ProcessSample{
			PID:             p.PID,
			Name:            p.Name,
			CPUPercent:      p.CPUPercent,
			CPUTicks:        p.CPUTicks,
			HasTicks:        p.HasTicks,
			MemoryBytes:     p.MemoryBytes,
			ReportedPercent: p.MemoryPercent,
		}
	}

	return &Snapshot{
		Timestamp:        at,
		Device:           target.Name,
		Host:             target.Host,
		CPUPercent:       status.CPUPercent,
		CPUCores:         status.Cores,
		MemoryPercent:    status.MemoryPercent,
		MemoryUsedBytes:  status.MemoryUsedBytes,
		MemoryTotalBytes: status.MemoryTotalBytes,
		ProcessCount:     len(samples),
		Processes:        samples,
		Raw:              RawResponse{Status: statusRaw, Processes: procRaw},
	}, nil
}

// Release closes the device's client. A key rejected mid-run leaves no idle
// connection behind while the other devices keep polling.
func (f *APIFetcher) Release(target DeviceTarget) {
	f.pool.CloseOne(target.Name)
}

// classify maps a fetch error onto a failure kind. Unclassified errors,
// including a per-fetch deadline, count as connection failures.
func classify(err error) fortios.Kind {
	if kind := fortios.KindOf(err); kind != fortios.KindUnknown {
		return kind
	}
	return fortios.KindConnection
}
