package logs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cmon-dev/cmon/internal/errors"
)

// Run is one device's set of log files from one run.
type Run struct {
	// Name is the shared file name stem, e.g. fortigate_fw1_20240501_120000.
	Name string
	// Group is the stem without the timestamp; runs are retained per group.
	Group   string
	Started time.Time
	Files   []string
	Size    int64
}

// ListRuns returns the runs in dir, newest first. Files that don't follow
// the run naming scheme are ignored.
func ListRuns(dir string) ([]Run, error) {
	dir, err := ExpandDir(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrWrite,
			"Can't read log directory "+dir,
			"Check your permissions.")
	}

	runs := make(map[string]*Run)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem, ok := runStem(entry.Name())
		if !ok {
			continue
		}
		group, started, ok := parseStem(stem)
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't stat
		}

		r, exists := runs[stem]
		if !exists {
			r = &Run{Name: stem, Group: group, Started: started}
			runs[stem] = r
		}
		r.Files = append(r.Files, filepath.Join(dir, entry.Name()))
		r.Size += info.Size()
	}

	result := make([]Run, 0, len(runs))
	for _, r := range runs {
		sort.Strings(r.Files)
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Started.Equal(result[j].Started) {
			return result[i].Started.After(result[j].Started)
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Cleanup applies the retention policy: first runs older than keepDays,
// then all but the newest keepRuns per device. Zero disables a rule.
// Returns the number of runs removed.
func Cleanup(dir string, keepRuns, keepDays int) (int, error) {
	removed := 0
	if keepDays > 0 {
		n, err := CleanByAge(dir, time.Duration(keepDays)*24*time.Hour, time.Now())
		removed += n
		if err != nil {
			return removed, err
		}
	}
	if keepRuns > 0 {
		n, err := CleanByRuns(dir, keepRuns)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// CleanByRuns keeps only the newest keep runs per device group.
func CleanByRuns(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	runs, err := ListRuns(dir)
	if err != nil {
		return 0, err
	}

	// runs is newest first, so per group everything past keep goes.
	seen := make(map[string]int)
	removed := 0
	for _, r := range runs {
		seen[r.Group]++
		if seen[r.Group] <= keep {
			continue
		}
		if err := removeRun(r); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CleanByAge removes runs that started before now - maxAge.
func CleanByAge(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	runs, err := ListRuns(dir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, r := range runs {
		if !r.Started.Before(cutoff) {
			continue
		}
		if err := removeRun(r); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CleanAll removes every run in dir.
func CleanAll(dir string) (int, error) {
	runs, err := ListRuns(dir)
	if err != nil {
		return 0, err
	}
	for i, r := range runs {
		if err := removeRun(r); err != nil {
			return i, err
		}
	}
	return len(runs), nil
}

func removeRun(r Run) error {
	for _, f := range r.Files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return errors.WrapWithCode(err, errors.ErrWrite,
				"Can't delete log file "+f,
				"Check your permissions.")
		}
	}
	return nil
}

// runStem strips a known log suffix from a file name.
func runStem(name string) (string, bool) {
	for _, suffix := range []string{RawSuffix, SummarySuffix, TextSuffix} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix), true
		}
	}
	return "", false
}

// parseStem splits <group>_<YYYYmmdd>_<HHMMSS> into the group and start time.
func parseStem(stem string) (string, time.Time, bool) {
	// Timestamp is the last 15 characters: 8 digits, underscore, 6 digits.
	if len(stem) < len(TimestampLayout)+2 {
		return "", time.Time{}, false
	}
	cut := len(stem) - len(TimestampLayout)
	if stem[cut-1] != '_' {
		return "", time.Time{}, false
	}
	started, err := time.ParseInLocation(TimestampLayout, stem[cut:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:cut-1], started, true
}
