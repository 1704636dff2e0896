package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/pkg/fortios"
)

// Options configures the device logs of one run.
type Options struct {
	Dir    string
	Prefix string
	// Fsync syncs each record to disk before the write returns.
	Fsync bool

	Policy monitor.Policy

	// Echo receives a copy of every text log line, typically the console.
	Echo io.Writer
}

// DeviceLog is the recorder for one device: a text log, a raw JSONL log
// and a summary JSONL log.
type DeviceLog struct {
	target  monitor.DeviceTarget
	files   RunFiles
	opts    Options
	text    *appender
	raw     *appender
	summary *appender
	now     func() time.Time
}

// Open creates the log directory and the three log files for target.
func Open(target monitor.DeviceTarget, started time.Time, opts Options) (*DeviceLog, error) {
	dir, err := ExpandDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrWrite,
			"Can't create log directory "+dir,
			"Check your permissions for "+filepath.Dir(dir)+".")
	}
	if opts.Prefix == "" {
		opts.Prefix = "fortigate"
	}

	files := NewRunFiles(dir, opts.Prefix, target.Name, started)
	l := &DeviceLog{
		target: target,
		files:  files,
		opts:   opts,
		now:    time.Now,
	}

	if l.text, err = openAppender(files.Text, opts.Fsync); err != nil {
		return nil, err
	}
	if l.raw, err = openAppender(files.Raw, opts.Fsync); err != nil {
		_ = l.text.close()
		return nil, err
	}
	if l.summary, err = openAppender(files.Summary, opts.Fsync); err != nil {
		_ = l.text.close()
		_ = l.raw.close()
		return nil, err
	}

	if err := l.writeText(l.header()); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// NewFactory returns a RecorderFactory that opens a DeviceLog per device,
// all stamped with the same run start time.
func NewFactory(started time.Time, opts Options) monitor.RecorderFactory {
	return func(target monitor.DeviceTarget) (monitor.Recorder, error) {
		return Open(target, started, opts)
	}
}

// Files returns the paths written by this log.
func (l *DeviceLog) Files() RunFiles {
	return l.files
}

func (l *DeviceLog) header() []string {
	abs := func(p string) string {
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	return []string{
		"Device: " + l.target.String(),
		"Summary Log: " + abs(l.files.Text),
		"Raw JSON Log: " + abs(l.files.Raw),
		"Summary JSON: " + abs(l.files.Summary),
	}
}

// RecordCycle writes both raw bodies, the text block and a summary record.
// All three sinks are attempted; the first error is returned.
func (l *DeviceLog) RecordCycle(r monitor.CycleReport) error {
	snap := r.Snapshot
	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}

	if len(snap.Raw.Status) > 0 {
		keep(l.raw.writeJSON(newRawRecord(snap.Timestamp, l.target.Name, r.Cycle, fortios.PerformanceStatusPath, snap.Raw.Status)))
	}
	if len(snap.Raw.Processes) > 0 {
		keep(l.raw.writeJSON(newRawRecord(snap.Timestamp, l.target.Name, r.Cycle, fortios.RunningProcessesPath, snap.Raw.Processes)))
	}
	keep(l.writeText(FormatCycle(r, l.opts.Policy)))
	keep(l.summary.writeJSON(cycleRecord(r)))
	return first
}

// RecordGap writes the failure. A received payload goes to the raw log.
func (l *DeviceLog) RecordGap(g monitor.GapReport) error {
	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}

	if len(g.Payload) > 0 || g.Endpoint != "" {
		rec := newRawRecord(g.At, l.target.Name, g.Cycle, g.Endpoint, g.Payload)
		if g.Err != nil {
			rec.Error = g.Err.Error()
		}
		keep(l.raw.writeJSON(rec))
	}
	keep(l.writeText(FormatGap(g)))
	keep(l.summary.writeJSON(gapRecord(g)))
	return first
}

// Note writes one operational line to the text log.
func (l *DeviceLog) Note(msg string) error {
	return l.writeText(strings.Split(msg, "\n"))
}

// Close closes all three files.
func (l *DeviceLog) Close() error {
	var first error
	for _, a := range []*appender{l.text, l.raw, l.summary} {
		if err := a.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// writeText prefixes each line with a timestamp and the device name and
// appends the block as a single record.
func (l *DeviceLog) writeText(lines []string) error {
	prefix := fmt.Sprintf("[%s] [%s] ", l.now().Format("2006-01-02 15:04:05"), l.target.Name)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	block := b.String()

	if l.opts.Echo != nil {
		_, _ = io.WriteString(l.opts.Echo, block)
	}
	return l.text.write([]byte(block))
}
