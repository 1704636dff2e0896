// Package lock keeps two monitors from writing into the same logs
// directory at once.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmon-dev/cmon/internal/errors"
)

// DirName is the lock directory created inside the logs directory.
const DirName = ".cmon.lock"

const ownerFile = "owner.json"

// Lock is a held logs directory lock.
type Lock struct {
	Dir   string
	Owner Owner
}

// Acquire takes the lock for logsDir, creating logsDir if needed. It uses
// mkdir as the atomic primitive. A lock left by a process that is no longer
// running on this host is removed and retaken; a live holder yields
// ErrLocked wrapped in a LOCK error naming the holder.
func Acquire(logsDir, command string) (*Lock, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrWrite,
			fmt.Sprintf("Can't create log directory %s", logsDir),
			"Check the logs.dir setting and your permissions.")
	}
	lockDir := filepath.Join(logsDir, DirName)

	self := currentOwner(command)

	// One retry after clearing a stale lock.
	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(lockDir, 0o755)
		if err == nil {
			if werr := writeOwner(lockDir, self); werr != nil {
				_ = os.RemoveAll(lockDir)
				return nil, werr
			}
			return &Lock{Dir: lockDir, Owner: self}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrLock,
				fmt.Sprintf("Failed to create lock directory: %s", lockDir),
				"Check the logs directory permissions.")
		}

		holder, rerr := readOwner(lockDir)
		if rerr != nil || !holder.Stale() {
			break
		}
		if err := os.RemoveAll(lockDir); err != nil {
			break
		}
	}

	return nil, errors.WrapWithCode(ErrLocked, errors.ErrLock,
		fmt.Sprintf("Another monitor is writing to %s", logsDir),
		fmt.Sprintf("Lock held by: %s. Stop it, use a different logs.dir, or run 'cmon logs unlock' if it is gone.", Holder(lockDir)))
}

// Release removes the lock, allowing others to acquire it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return ForceRelease(l.Dir)
}

// ForceRelease removes a lock directory regardless of who holds it.
// Removing a lock that doesn't exist is not an error.
func ForceRelease(lockDir string) error {
	if err := os.RemoveAll(lockDir); err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory: %s", lockDir),
			"Check the logs directory permissions.")
	}
	return nil
}

// Holder describes who holds the lock at lockDir.
func Holder(lockDir string) string {
	data, err := os.ReadFile(filepath.Join(lockDir, ownerFile))
	if err != nil {
		return "unknown"
	}
	if o, err := decodeOwner(data); err == nil {
		return o.String()
	}
	if raw := strings.TrimSpace(string(data)); raw != "" {
		return raw
	}
	return "unknown"
}

// Path returns the lock directory for logsDir.
func Path(logsDir string) string {
	return filepath.Join(logsDir, DirName)
}

func writeOwner(lockDir string, o Owner) error {
	data, err := json.Marshal(o)
	if err == nil {
		err = os.WriteFile(filepath.Join(lockDir, ownerFile), data, 0o644)
	}
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			"Failed to record the lock owner",
			"Check disk space and permissions on the logs directory.")
	}
	return nil
}

func readOwner(lockDir string) (Owner, error) {
	data, err := os.ReadFile(filepath.Join(lockDir, ownerFile))
	if err != nil {
		return Owner{}, err
	}
	return decodeOwner(data)
}
