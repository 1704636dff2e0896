package monitor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cmon-dev/cmon/internal/logger"
	"github.com/cmon-dev/cmon/pkg/fortios"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fw1 = DeviceTarget{Name: "fw1", Host: "10.0.0.1", APIKey: "k1"}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Backoff:  Backoff{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
		Rank:     DefaultRankOptions(),
		Policy:   DefaultPolicy(),
	}
}

func TestSession_MaxCycles(t *testing.T) {
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	obs := newRecordingObserver()
	cfg := testSessionConfig()
	cfg.MaxCycles = 3

	s := NewSession(fw1, fetcher, rec, cfg, nil, obs)
	result := s.Run(context.Background())

	assert.Equal(t, ReasonLimitReached, result.Reason)
	assert.Equal(t, 3, result.Cycles)
	assert.Zero(t, result.Gaps)
	assert.Equal(t, StateStopped, s.State())

	cycles := rec.Cycles()
	require.Len(t, cycles, 3)
	assert.True(t, cycles[0].FirstSample)
	assert.False(t, cycles[1].FirstSample)
	assert.Equal(t, []int{1, 2, 3}, []int{cycles[0].Cycle, cycles[1].Cycle, cycles[2].Cycle})

	snap := cycles[0].Snapshot
	assert.Equal(t, "fw1", snap.Device)
	assert.Equal(t, "10.0.0.1", snap.Host)
	assert.True(t, snap.Validated)
	assert.Equal(t, 2, snap.ProcessCount)
	require.Len(t, snap.Processes, 2)
	assert.Equal(t, 2, snap.Processes[0].PID)
	assert.True(t, snap.Processes[0].Suspect)
	assert.Equal(t, 1, snap.SuspectCount())

	states := obs.States("fw1")
	require.NotEmpty(t, states)
	assert.Equal(t, StateStarting, states[0])
	assert.Contains(t, states, StatePolling)
	assert.Contains(t, states, StateSleeping)
	assert.Equal(t, StateStopped, states[len(states)-1])
	assert.Len(t, obs.stopped, 1)

	notes := rec.Notes()
	require.NotEmpty(t, notes)
	assert.Contains(t, notes[0], "Starting monitoring")
	assert.Contains(t, notes[len(notes)-1], "Monitoring complete")
}

func TestSession_AuthFailureStops(t *testing.T) {
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		return nil, authErr()
	})
	rec := &memRecorder{}
	log := logger.NewBufferLogger()
	cfg := testSessionConfig()
	cfg.MaxCycles = 5

	s := NewSession(fw1, fetcher, rec, cfg, log, nil)
	result := s.Run(context.Background())

	assert.Equal(t, ReasonAuthFailure, result.Reason)
	assert.Equal(t, fortios.KindAuth, fortios.KindOf(result.Err))
	assert.Equal(t, 1, fetcher.Calls("fw1"), "auth failures are never retried")
	assert.Equal(t, []string{"fw1"}, fetcher.Released())

	gaps := rec.Gaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, "auth", gaps[0].Kind)
	assert.Equal(t, 1, gaps[0].Attempts)
	assert.Contains(t, string(gaps[0].Payload), "http_status")
	assert.True(t, log.HasLevel("error"))

	notes := rec.Notes()
	assert.Contains(t, notes[len(notes)-1], "AUTH FAILURE")
}

func TestSession_ConnectionRetrySucceeds(t *testing.T) {
	fetcher := newScriptedFetcher(func(_ context.Context, _ DeviceTarget, call int) (*Snapshot, error) {
		if call < 3 {
			return nil, connectionErr()
		}
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	obs := newRecordingObserver()
	cfg := testSessionConfig()
	cfg.MaxCycles = 1

	result := NewSession(fw1, fetcher, rec, cfg, nil, obs).Run(context.Background())

	assert.Equal(t, 3, fetcher.Calls("fw1"))
	assert.Zero(t, result.Gaps)
	assert.Len(t, rec.Cycles(), 1)
	assert.Contains(t, obs.States("fw1"), StateErrorBackoff)
}

func TestSession_ConnectionExhaustedRecordsGapAndContinues(t *testing.T) {
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		return nil, connectionErr()
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.MaxCycles = 2
	cfg.Backoff.MaxAttempts = 2

	result := NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	assert.Equal(t, ReasonLimitReached, result.Reason)
	assert.Equal(t, 2, result.Gaps)
	assert.Equal(t, 4, fetcher.Calls("fw1"))

	gaps := rec.Gaps()
	require.Len(t, gaps, 2)
	assert.Equal(t, "connection", gaps[0].Kind)
	assert.Equal(t, 2, gaps[0].Attempts)
	assert.Empty(t, rec.Cycles())
}

func TestSession_MalformedSkipsCycle(t *testing.T) {
	body := []byte(`{"results":{"cpu":"n/a"}}`)
	fetcher := newScriptedFetcher(func(_ context.Context, _ DeviceTarget, call int) (*Snapshot, error) {
		if call == 1 {
			return nil, &fortios.APIError{Kind: fortios.KindMalformed, Endpoint: fortios.PerformanceStatusPath, StatusCode: 200, Body: body, Err: fmt.Errorf("bad cpu")}
		}
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.MaxCycles = 2

	result := NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	assert.Equal(t, 2, fetcher.Calls("fw1"), "malformed responses are not retried")
	assert.Equal(t, 1, result.Gaps)

	gaps := rec.Gaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, "malformed", gaps[0].Kind)
	assert.Equal(t, fortios.PerformanceStatusPath, gaps[0].Endpoint)
	assert.Equal(t, body, gaps[0].Payload)
	assert.Len(t, rec.Cycles(), 1)
}

func TestSession_Transitions(t *testing.T) {
	memory := []float64{70, 80, 90, 90, 60}
	fetcher := newScriptedFetcher(func(_ context.Context, _ DeviceTarget, call int) (*Snapshot, error) {
		return healthySnapshot(10, memory[call-1]), nil
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.MaxCycles = len(memory)

	NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	cycles := rec.Cycles()
	require.Len(t, cycles, 5)

	assert.Empty(t, cycles[0].Transitions)
	require.Len(t, cycles[1].Transitions, 1)
	assert.Equal(t, LevelNormal, cycles[1].Transitions[0].From)
	assert.Equal(t, LevelWarning, cycles[1].Transitions[0].To)
	require.Len(t, cycles[2].Transitions, 1)
	assert.Equal(t, LevelCritical, cycles[2].Transitions[0].To)
	assert.Empty(t, cycles[3].Transitions)
	require.Len(t, cycles[4].Transitions, 1)
	assert.Equal(t, LevelNormal, cycles[4].Transitions[0].To)
	assert.Equal(t, LevelNormal, cycles[4].State.Memory)
}

func TestSession_ShutdownDuringFetchAbandonsCycle(t *testing.T) {
	started := make(chan struct{})
	fetcher := newScriptedFetcher(func(ctx context.Context, _ DeviceTarget, _ int) (*Snapshot, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.Timeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan SessionResult, 1)
	go func() { done <- NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(ctx) }()

	<-started
	cancel()

	select {
	case result := <-done:
		assert.Equal(t, ReasonShutdown, result.Reason)
		assert.Zero(t, result.Gaps)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
	assert.Empty(t, rec.Cycles())
	assert.Empty(t, rec.Gaps())
	notes := rec.Notes()
	assert.Contains(t, notes[len(notes)-1], "stopped by operator")
}

func TestSession_ShutdownDuringSleep(t *testing.T) {
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	obs := newRecordingObserver()
	cfg := testSessionConfig()
	cfg.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(fw1, fetcher, rec, cfg, nil, obs)
	done := make(chan SessionResult, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateSleeping }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case result := <-done:
		assert.Equal(t, ReasonShutdown, result.Reason)
		assert.Equal(t, 1, result.Cycles)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
	assert.Len(t, rec.Cycles(), 1)
}

func TestSession_Deadline(t *testing.T) {
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.Interval = 20 * time.Millisecond
	cfg.Deadline = time.Now().Add(50 * time.Millisecond)

	result := NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	assert.Equal(t, ReasonLimitReached, result.Reason)
	assert.GreaterOrEqual(t, result.Cycles, 1)
	assert.LessOrEqual(t, result.Cycles, 3)
}

func TestSession_Cadence(t *testing.T) {
	const (
		interval = 40 * time.Millisecond
		latency  = 15 * time.Millisecond
		cycles   = 8
	)
	var stamps []time.Time
	fetcher := newScriptedFetcher(func(context.Context, DeviceTarget, int) (*Snapshot, error) {
		stamps = append(stamps, time.Now())
		time.Sleep(latency)
		return healthySnapshot(10, 50), nil
	})
	cfg := testSessionConfig()
	cfg.Interval = interval
	cfg.MaxCycles = cycles

	NewSession(fw1, fetcher, &memRecorder{}, cfg, nil, nil).Run(context.Background())

	require.Len(t, stamps, cycles)
	// Polls start on a fixed grid, so fetch time must not push later polls
	// back: 7 intervals is 280ms, while sleeping after each fetch gives 385ms.
	elapsed := stamps[cycles-1].Sub(stamps[0])
	assert.GreaterOrEqual(t, elapsed, (cycles-1)*interval-10*time.Millisecond)
	assert.Less(t, elapsed, (cycles-1)*interval+(cycles-1)*latency/2)
}

func TestSession_OverrunSkipsTicks(t *testing.T) {
	fetcher := newScriptedFetcher(func(_ context.Context, _ DeviceTarget, call int) (*Snapshot, error) {
		if call == 1 {
			time.Sleep(35 * time.Millisecond)
		}
		return healthySnapshot(10, 50), nil
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.MaxCycles = 2

	NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	found := false
	for _, n := range rec.Notes() {
		if strings.Contains(n, "skipped") {
			found = true
		}
	}
	assert.True(t, found, "expected an overrun note, got %v", rec.Notes())
	assert.Len(t, rec.Cycles(), 2)
}

func TestSession_TickDerivedCPU(t *testing.T) {
	fetcher := newScriptedFetcher(func(_ context.Context, _ DeviceTarget, call int) (*Snapshot, error) {
		snap := healthySnapshot(10, 50)
		snap.CPUCores = 1
		snap.Processes[1].HasTicks = true
		snap.Processes[1].CPUTicks = int64(call * 100)
		return snap, nil
	})
	rec := &memRecorder{}
	cfg := testSessionConfig()
	cfg.MaxCycles = 2

	NewSession(fw1, fetcher, rec, cfg, nil, nil).Run(context.Background())

	cycles := rec.Cycles()
	require.Len(t, cycles, 2)
	assert.Nil(t, cycles[0].Snapshot.Processes[0].CPUPercent)
	require.NotNil(t, cycles[1].Snapshot.Processes[0].CPUPercent)
	assert.Greater(t, *cycles[1].Snapshot.Processes[0].CPUPercent, 0.0)
}
