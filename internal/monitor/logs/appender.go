package logs

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/cmon-dev/cmon/internal/errors"
)

// appender writes whole records to a file opened in append mode. Every
// record goes out in a single write call, so a crash can lose the last
// record but never leaves a torn record before an intact one.
type appender struct {
	mu    sync.Mutex
	path  string
	f     *os.File
	fsync bool
}

func openAppender(path string, fsync bool) (*appender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrWrite,
			"Can't open log file "+path,
			"Check that the logs directory is writable.")
	}
	return &appender{path: path, f: f, fsync: fsync}, nil
}

// write appends p as one record.
func (a *appender) write(p []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.f == nil {
		return errors.New(errors.ErrWrite,
			"Log file "+a.path+" is closed",
			"This is unexpected - the run has already finished.")
	}
	if _, err := a.f.Write(p); err != nil {
		return errors.WrapWithCode(err, errors.ErrWrite,
			"Can't write to "+a.path,
			"Check free disk space.")
	}
	if a.fsync {
		if err := a.f.Sync(); err != nil {
			return errors.WrapWithCode(err, errors.ErrWrite,
				"Can't sync "+a.path,
				"Check free disk space.")
		}
	}
	return nil
}

// writeJSON appends v as one JSON line.
func (a *appender) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrWrite,
			"Can't encode log record for "+a.path,
			"This is unexpected - check the record data.")
	}
	return a.write(append(data, '\n'))
}

func (a *appender) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}
