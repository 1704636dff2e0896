// Package logs writes the per-device run logs: a human-readable text log,
// a raw JSONL log of every API response, and a summary JSONL log with one
// record per cycle.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmon-dev/cmon/internal/errors"
)

// TimestampLayout is the run start time format used in file names.
const TimestampLayout = "20060102_150405"

// File name suffixes.
const (
	TextSuffix    = ".log"
	RawSuffix     = "_raw.jsonl"
	SummarySuffix = "_summary.jsonl"
)

// RunFiles are the three log paths for one device in one run.
type RunFiles struct {
	Text    string
	Raw     string
	Summary string
}

// NewRunFiles builds the paths <dir>/<prefix>_<device>_<YYYYmmdd_HHMMSS>
// with the text, raw and summary suffixes.
func NewRunFiles(dir, prefix, device string, started time.Time) RunFiles {
	base := fmt.Sprintf("%s_%s_%s", prefix, SanitizeName(device), started.Format(TimestampLayout))
	return RunFiles{
		Text:    filepath.Join(dir, base+TextSuffix),
		Raw:     filepath.Join(dir, base+RawSuffix),
		Summary: filepath.Join(dir, base+SummarySuffix),
	}
}

// All returns the three paths in text, raw, summary order.
func (f RunFiles) All() []string {
	return []string{f.Text, f.Raw, f.Summary}
}

// SanitizeName makes a device name safe for file names. Anything outside
// [A-Za-z0-9-] becomes an underscore, so "10.0.0.1" becomes "10_0_0_1".
func SanitizeName(name string) string {
	if name == "" {
		return "device"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ExpandDir resolves a leading ~ in a log directory.
func ExpandDir(dir string) (string, error) {
	if dir == "" || dir[0] != '~' {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Can't determine home directory",
			"Check your environment configuration.")
	}
	return filepath.Join(home, dir[1:]), nil
}
