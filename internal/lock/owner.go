package lock

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrLocked is the cause of Acquire failures when a live monitor holds the
// lock. Check for it with errors.Is.
var ErrLocked = stderrors.New("logs directory is locked by another monitor")

// Owner identifies the monitor holding a lock. It is stored as JSON in the
// lock directory.
type Owner struct {
	User     string    `json:"user"`
	Hostname string    `json:"hostname"`
	PID      int       `json:"pid"`
	Command  string    `json:"command,omitempty"`
	Since    time.Time `json:"since"`
}

func currentOwner(command string) Owner {
	o := Owner{
		User:    os.Getenv("USER"),
		PID:     os.Getpid(),
		Command: command,
		Since:   time.Now(),
	}
	if o.User == "" {
		o.User = "unknown"
	}
	if host, err := os.Hostname(); err == nil {
		o.Hostname = host
	} else {
		o.Hostname = "unknown"
	}
	return o
}

func decodeOwner(data []byte) (Owner, error) {
	var o Owner
	err := json.Unmarshal(data, &o)
	return o, err
}

// Stale reports whether the owner ran on this host and its process is gone.
// Owners on other hosts sharing the directory are never stale.
func (o Owner) Stale() bool {
	host, err := os.Hostname()
	if err != nil || host != o.Hostname {
		return false
	}
	return !pidAlive(o.PID)
}

func (o Owner) String() string {
	s := fmt.Sprintf("%s@%s (pid %d)", o.User, o.Hostname, o.PID)
	if o.Command != "" {
		s += fmt.Sprintf(" running '%s'", o.Command)
	}
	return s
}

// pidAlive sends signal 0. EPERM still means the process exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || stderrors.Is(err, syscall.EPERM)
}
