package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmon-dev/cmon/internal/logger"
	"github.com/cmon-dev/cmon/pkg/fortios"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 30 * time.Second

// SessionConfig controls one device session.
type SessionConfig struct {
	Interval time.Duration
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration

	// MaxCycles stops the session after this many cycles (0 = unlimited).
	// Gaps count as cycles.
	MaxCycles int
	// Deadline stops the session before the first tick at or after it.
	Deadline time.Time

	Backoff Backoff
	Rank    RankOptions
	Policy  Policy
}

// Session polls one device on a fixed cadence until it is cancelled, hits a
// limit, or its credentials are rejected. A session never affects another
// device.
type Session struct {
	target   DeviceTarget
	fetcher  Fetcher
	recorder Recorder
	observer Observer
	cfg      SessionConfig
	log      logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	state SessionState

	ticks     *tickTracker
	threshold ThresholdState
	cycles    int
	gaps      int
	authErr   error
}

// NewSession creates a session. A nil observer or logger is replaced with a
// no-op.
func NewSession(target DeviceTarget, fetcher Fetcher, recorder Recorder, cfg SessionConfig, log logger.Logger, observer Observer) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Session{
		target:   target,
		fetcher:  fetcher,
		recorder: recorder,
		observer: observer,
		cfg:      cfg,
		log:      logger.With(log, "device", target.Name),
		now:      time.Now,
		state:    StateStarting,
		ticks:    newTickTracker(),
	}
}

// Target returns the device this session polls.
func (s *Session) Target() DeviceTarget {
	return s.target
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		s.log.Debug("state %s", state)
		s.observer.SessionState(s.target, state)
	}
}

// Run polls until ctx is cancelled or a stop condition is met. It always
// returns with the session in StateStopped.
func (s *Session) Run(ctx context.Context) SessionResult {
	s.observer.SessionState(s.target, StateStarting)
	s.note(fmt.Sprintf("Starting monitoring of %s every %s", s.target, s.cfg.Interval))
	s.log.Info("starting session for %s", s.target)

	reason := s.loop(ctx)

	s.setState(StateStopping)
	result := SessionResult{
		Target: s.target,
		Reason: reason,
		Cycles: s.cycles,
		Gaps:   s.gaps,
	}
	if reason == ReasonAuthFailure {
		result.Err = s.authErr
	}
	if r, ok := s.fetcher.(Releaser); ok {
		r.Release(s.target)
	}
	s.note(stopMessage(result))
	s.log.Info("session stopped (%s) after %d cycle(s), %d gap(s)", reason, s.cycles, s.gaps)
	s.setState(StateStopped)
	s.observer.SessionStopped(result)
	return result
}

func (s *Session) loop(ctx context.Context) StopReason {
	anchor := s.now()
	due := anchor

	for {
		if !s.waitUntil(ctx, due) {
			return ReasonShutdown
		}
		if s.pastDeadline(s.now()) {
			return ReasonLimitReached
		}

		s.cycles++
		if reason, stop := s.runCycle(ctx, s.cycles); stop {
			return reason
		}

		if ctx.Err() != nil {
			return ReasonShutdown
		}
		if s.cfg.MaxCycles > 0 && s.cycles >= s.cfg.MaxCycles {
			return ReasonLimitReached
		}

		next := nextTick(anchor, s.cfg.Interval, s.now())
		if skipped := int(next.Sub(due)/s.cfg.Interval) - 1; skipped > 0 {
			s.log.Warn("cycle %d overran the interval, skipping %d tick(s)", s.cycles, skipped)
			s.note(fmt.Sprintf("Cycle %d overran the %s interval; skipped %d tick(s)", s.cycles, s.cfg.Interval, skipped))
		}
		if s.pastDeadline(next) {
			return ReasonLimitReached
		}
		due = next
	}
}

func (s *Session) pastDeadline(t time.Time) bool {
	return !s.cfg.Deadline.IsZero() && !t.Before(s.cfg.Deadline)
}

// waitUntil sleeps until t. It returns false if ctx ended first.
func (s *Session) waitUntil(ctx context.Context, t time.Time) bool {
	d := t.Sub(s.now())
	if d <= 0 {
		return ctx.Err() == nil
	}
	s.setState(StateSleeping)
	return sleepCtx(ctx, d)
}

// runCycle performs one cycle. stop is true when the session must end.
func (s *Session) runCycle(ctx context.Context, cycle int) (reason StopReason, stop bool) {
	s.setState(StatePolling)
	started := s.now()

	snap, attempts, err := s.fetch(ctx)
	if err == nil {
		s.complete(cycle, snap, s.now().Sub(started))
		return "", false
	}

	// Shutdown mid-fetch abandons the cycle without writing anything.
	if ctx.Err() != nil {
		return ReasonShutdown, true
	}

	gap := s.gapReport(cycle, started, attempts, err)
	s.gaps++
	if werr := s.recorder.RecordGap(gap); werr != nil {
		s.log.Error("write gap for cycle %d: %v", cycle, werr)
	}
	s.observer.CycleFailed(gap)

	switch classify(err) {
	case fortios.KindAuth:
		s.log.Error("credential rejected by %s, stopping session: %v", s.target, err)
		s.authErr = err
		return ReasonAuthFailure, true
	case fortios.KindMalformed:
		s.log.Warn("malformed response in cycle %d, skipping: %v", cycle, err)
	default:
		s.log.Warn("%s unreachable after %d attempt(s), cycle %d recorded as a gap: %v", s.target, attempts, cycle, err)
	}
	return "", false
}

// fetch runs one fetch with in-cycle retries for connection failures.
func (s *Session) fetch(ctx context.Context) (*Snapshot, int, error) {
	maxAttempts := s.cfg.Backoff.Attempts()

	for attempt := 1; ; attempt++ {
		snap, err := s.fetchOnce(ctx)
		if err == nil {
			return snap, attempt, nil
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		if classify(err) != fortios.KindConnection || attempt >= maxAttempts {
			return nil, attempt, err
		}

		delay := s.cfg.Backoff.Delay(attempt)
		s.setState(StateErrorBackoff)
		s.log.Warn("connection failure (attempt %d/%d), retrying in %s: %v", attempt, maxAttempts, delay, err)
		s.note(fmt.Sprintf("Connection failure (attempt %d/%d): %v - retrying in %s", attempt, maxAttempts, err, delay))
		if !sleepCtx(ctx, delay) {
			return nil, attempt, ctx.Err()
		}
		s.setState(StatePolling)
	}
}

func (s *Session) fetchOnce(ctx context.Context) (*Snapshot, error) {
	if s.cfg.Timeout <= 0 {
		return s.fetcher.Fetch(ctx, s.target)
	}
	fctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.fetcher.Fetch(fctx, s.target)
}

// complete ranks, classifies and records a fetched snapshot.
func (s *Session) complete(cycle int, fetched *Snapshot, took time.Duration) {
	snap := *fetched
	if snap.Timestamp.IsZero() {
		snap.Timestamp = s.now()
	}
	if snap.Device == "" {
		snap.Device = s.target.Name
	}
	if snap.Host == "" {
		snap.Host = s.target.Host
	}
	if snap.ProcessCount == 0 {
		snap.ProcessCount = len(fetched.Processes)
	}

	procs := make([]ProcessSample, len(fetched.Processes))
	copy(procs, fetched.Processes)
	first := !s.ticks.primed()
	s.ticks.apply(procs, snap.CPUCores, snap.Timestamp)

	ranked := RankProcesses(procs, snap.MemoryTotalBytes, s.cfg.Rank)
	snap.Processes = ranked.Top
	snap.Validated = ranked.Validated
	snap.Anomalies = ranked.Anomalies

	state, transitions := Evaluate(snap.CPUPercent, snap.MemoryPercent, s.threshold, s.cfg.Policy, snap.Timestamp)
	s.threshold = state

	for _, t := range transitions {
		if t.Escalation() {
			s.log.Warn("%s moved %s -> %s at %.1f%%", t.Metric, t.From, t.To, t.Value)
		} else {
			s.log.Info("%s moved %s -> %s at %.1f%%", t.Metric, t.From, t.To, t.Value)
		}
	}

	report := CycleReport{
		Cycle:       cycle,
		Target:      s.target,
		Snapshot:    &snap,
		State:       state,
		Transitions: transitions,
		FirstSample: first,
		Duration:    took,
	}
	if err := s.recorder.RecordCycle(report); err != nil {
		s.log.Error("write cycle %d: %v", cycle, err)
	}
	s.observer.CycleCompleted(report)
}

func (s *Session) gapReport(cycle int, at time.Time, attempts int, err error) GapReport {
	gap := GapReport{
		Cycle:    cycle,
		Target:   s.target,
		At:       at,
		Kind:     classify(err).String(),
		Attempts: attempts,
		Err:      err,
	}
	var apiErr *fortios.APIError
	if errors.As(err, &apiErr) {
		gap.Endpoint = apiErr.Endpoint
		gap.Payload = apiErr.Body
	}
	return gap
}

func (s *Session) note(msg string) {
	if err := s.recorder.Note(msg); err != nil {
		s.log.Error("write log note: %v", err)
	}
}

func stopMessage(r SessionResult) string {
	switch r.Reason {
	case ReasonAuthFailure:
		return fmt.Sprintf("AUTH FAILURE: %v. Session stopped; check the API key for %s", r.Err, r.Target.Name)
	case ReasonLimitReached:
		return fmt.Sprintf("Monitoring complete: %d cycle(s), %d gap(s)", r.Cycles, r.Gaps)
	default:
		return fmt.Sprintf("Monitoring stopped by operator after %d cycle(s), %d gap(s)", r.Cycles, r.Gaps)
	}
}
