package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/logger"
)

// RunConfig is shared by every session in one run.
type RunConfig struct {
	Interval time.Duration
	Timeout  time.Duration

	// MaxDuration bounds the whole run (0 = until stopped).
	MaxDuration time.Duration
	// MaxCycles bounds each session (0 = unlimited).
	MaxCycles int

	Backoff Backoff
	Rank    RankOptions
	Policy  Policy
}

// DefaultRunConfig returns the standard cadence, retry, ranking and
// threshold settings.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Interval: DefaultInterval,
		Timeout:  10 * time.Second,
		Backoff:  DefaultBackoff(),
		Rank:     DefaultRankOptions(),
		Policy:   DefaultPolicy(),
	}
}

// Result is the outcome of a run.
type Result struct {
	Sessions []SessionResult
	Duration time.Duration
}

// AuthFailures returns the number of devices stopped for rejected credentials.
func (r *Result) AuthFailures() int {
	n := 0
	for _, s := range r.Sessions {
		if s.Reason == ReasonAuthFailure {
			n++
		}
	}
	return n
}

// AllAuthFailed reports whether every device stopped on rejected credentials.
func (r *Result) AllAuthFailed() bool {
	return len(r.Sessions) > 0 && r.AuthFailures() == len(r.Sessions)
}

// Orchestrator runs one session per device concurrently.
type Orchestrator struct {
	targets     []DeviceTarget
	fetcher     Fetcher
	newRecorder RecorderFactory
	config      RunConfig
	log         logger.Logger
	observer    Observer

	mu       sync.RWMutex
	sessions []*Session

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the operational logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithObserver registers an observer for session events.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// NewOrchestrator creates an orchestrator for targets.
func NewOrchestrator(targets []DeviceTarget, fetcher Fetcher, newRecorder RecorderFactory, cfg RunConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		targets:     targets,
		fetcher:     fetcher,
		newRecorder: newRecorder,
		config:      cfg,
		log:         logger.Noop(),
		observer:    NopObserver{},
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts every session and blocks until all have stopped. It returns an
// AUTH error when every device rejected its credentials.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if len(o.targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No devices to monitor",
			"Add devices to cmon.yaml or pass --targets.")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	recorders, err := o.openRecorders()
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, r := range recorders {
			if cerr := r.Close(); cerr != nil {
				o.log.Error("close device log: %v", cerr)
			}
		}
	}()

	startTime := time.Now()
	var deadline time.Time
	if o.config.MaxDuration > 0 {
		deadline = startTime.Add(o.config.MaxDuration)
	}

	sessions := make([]*Session, len(o.targets))
	for i, target := range o.targets {
		sessions[i] = NewSession(target, o.fetcher, recorders[i], SessionConfig{
			Interval:  o.config.Interval,
			Timeout:   o.config.Timeout,
			MaxCycles: o.config.MaxCycles,
			Deadline:  deadline,
			Backoff:   o.config.Backoff,
			Rank:      o.config.Rank,
			Policy:    o.config.Policy,
		}, o.log, o.observer)
	}
	o.mu.Lock()
	o.sessions = sessions
	o.mu.Unlock()

	o.log.Info("monitoring %d device(s) every %s", len(sessions), o.config.Interval)

	results := make([]SessionResult, len(sessions))
	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			results[i] = s.Run(ctx)
		}(i, s)
	}
	wg.Wait()

	result := &Result{
		Sessions: results,
		Duration: time.Since(startTime),
	}

	if result.AllAuthFailed() {
		return result, errors.New(errors.ErrAuth,
			"Every device rejected its API key",
			"Check the api_key values; a REST API admin token is required.")
	}
	return result, nil
}

// openRecorders opens one recorder per target, closing any already opened
// if one fails.
func (o *Orchestrator) openRecorders() ([]Recorder, error) {
	recorders := make([]Recorder, 0, len(o.targets))
	for _, target := range o.targets {
		r, err := o.newRecorder(target)
		if err != nil {
			for _, opened := range recorders {
				_ = opened.Close()
			}
			return nil, errors.WrapWithCode(err, errors.ErrWrite,
				fmt.Sprintf("Couldn't open log files for %s", target.Name),
				"Check that the logs directory exists and is writable.")
		}
		recorders = append(recorders, r)
	}
	return recorders, nil
}

// AddObserver registers another observer alongside any set with
// WithObserver. Must be called before Run.
func (o *Orchestrator) AddObserver(obs Observer) {
	if _, nop := o.observer.(NopObserver); nop {
		o.observer = obs
		return
	}
	o.observer = Observers{o.observer, obs}
}

// Targets returns the devices this orchestrator monitors.
func (o *Orchestrator) Targets() []DeviceTarget {
	return o.targets
}

// Stop cancels every session. Sessions finish or abandon their current
// cycle and Run returns. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// States returns the current state of each session keyed by device name.
// It is empty before Run starts the sessions.
func (o *Orchestrator) States() map[string]SessionState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	states := make(map[string]SessionState, len(o.sessions))
	for _, s := range o.sessions {
		states[s.Target().Name] = s.State()
	}
	return states
}
