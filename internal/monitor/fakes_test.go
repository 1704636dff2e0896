package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/cmon-dev/cmon/pkg/fortios"
)

// memRecorder keeps everything a session records in memory.
type memRecorder struct {
	mu     sync.Mutex
	cycles []CycleReport
	gaps   []GapReport
	notes  []string
	closed bool
}

func (r *memRecorder) RecordCycle(report CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, report)
	return nil
}

func (r *memRecorder) RecordGap(gap GapReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gaps = append(r.gaps, gap)
	return nil
}

func (r *memRecorder) Note(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
	return nil
}

func (r *memRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *memRecorder) Cycles() []CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CycleReport(nil), r.cycles...)
}

func (r *memRecorder) Gaps() []GapReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GapReport(nil), r.gaps...)
}

func (r *memRecorder) Notes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notes...)
}

func (r *memRecorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// scriptedFetcher answers each call with fn(call), counting from 1.
type scriptedFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	released []string
	fn       func(ctx context.Context, target DeviceTarget, call int) (*Snapshot, error)
}

func newScriptedFetcher(fn func(ctx context.Context, target DeviceTarget, call int) (*Snapshot, error)) *scriptedFetcher {
	return &scriptedFetcher{calls: make(map[string]int), fn: fn}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, target DeviceTarget) (*Snapshot, error) {
	f.mu.Lock()
	f.calls[target.Name]++
	call := f.calls[target.Name]
	f.mu.Unlock()
	return f.fn(ctx, target, call)
}

func (f *scriptedFetcher) Release(target DeviceTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, target.Name)
}

func (f *scriptedFetcher) Released() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

func (f *scriptedFetcher) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// recordingObserver captures state changes per device.
type recordingObserver struct {
	mu      sync.Mutex
	states  map[string][]SessionState
	cycles  int
	gaps    int
	stopped []SessionResult
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{states: make(map[string][]SessionState)}
}

func (o *recordingObserver) SessionState(target DeviceTarget, state SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[target.Name] = append(o.states[target.Name], state)
}

func (o *recordingObserver) CycleCompleted(CycleReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles++
}

func (o *recordingObserver) CycleFailed(GapReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gaps++
}

func (o *recordingObserver) SessionStopped(r SessionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = append(o.stopped, r)
}

func (o *recordingObserver) States(name string) []SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SessionState(nil), o.states[name]...)
}

func healthySnapshot(cpu, mem float64) *Snapshot {
	return &Snapshot{
		CPUPercent:       cpu,
		MemoryPercent:    mem,
		MemoryTotalBytes: 10_000_000,
		Processes: []ProcessSample{
			{PID: 1, Name: "init", MemoryBytes: 100_000},
			{PID: 2, Name: "ipsengine", MemoryBytes: 1_000_000, ReportedPercent: pct(25)},
		},
	}
}

func connectionErr() error {
	return &fortios.APIError{Kind: fortios.KindConnection, Endpoint: fortios.PerformanceStatusPath, Err: fmt.Errorf("connection refused")}
}

func authErr() error {
	return &fortios.APIError{
		Kind:       fortios.KindAuth,
		Endpoint:   fortios.PerformanceStatusPath,
		StatusCode: 401,
		Body:       []byte(`{"status":"error","http_status":401}`),
		Err:        fmt.Errorf("unexpected status 401 Unauthorized"),
	}
}
