package monitor

// Observer receives session events as they happen. Implementations must be
// safe for concurrent use: every device session calls in from its own
// goroutine.
type Observer interface {
	SessionState(target DeviceTarget, state SessionState)
	CycleCompleted(report CycleReport)
	CycleFailed(gap GapReport)
	SessionStopped(result SessionResult)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) SessionState(DeviceTarget, SessionState) {}
func (NopObserver) CycleCompleted(CycleReport)              {}
func (NopObserver) CycleFailed(GapReport)                   {}
func (NopObserver) SessionStopped(SessionResult)            {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) SessionState(target DeviceTarget, state SessionState) {
	for _, obs := range o {
		obs.SessionState(target, state)
	}
}

func (o Observers) CycleCompleted(report CycleReport) {
	for _, obs := range o {
		obs.CycleCompleted(report)
	}
}

func (o Observers) CycleFailed(gap GapReport) {
	for _, obs := range o {
		obs.CycleFailed(gap)
	}
}

func (o Observers) SessionStopped(result SessionResult) {
	for _, obs := range o {
		obs.SessionStopped(result)
	}
}

// Recorder persists a session's output. One recorder serves one device and
// is only called from that device's session goroutine.
type Recorder interface {
	RecordCycle(report CycleReport) error
	RecordGap(gap GapReport) error
	// Note writes a free-form operational line to the human-readable log.
	Note(msg string) error
	Close() error
}

// RecorderFactory opens a recorder for a device at the start of a run.
type RecorderFactory func(target DeviceTarget) (Recorder, error)

// DiscardRecorder drops everything written to it. One-shot checks use it
// when no log files are wanted.
type DiscardRecorder struct{}

func (DiscardRecorder) RecordCycle(CycleReport) error { return nil }
func (DiscardRecorder) RecordGap(GapReport) error     { return nil }
func (DiscardRecorder) Note(string) error             { return nil }
func (DiscardRecorder) Close() error                  { return nil }

// DiscardFactory opens a DiscardRecorder for every device.
func DiscardFactory(DeviceTarget) (Recorder, error) { return DiscardRecorder{}, nil }
