package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cmon-dev/cmon/internal/errors"
)

// DefaultTargetsFile is the conventional name of the legacy targets file.
const DefaultTargetsFile = "fortigate_config.txt"

const targetsTemplate = `# FortiGate Configuration File
# Format: IP_ADDRESS, API_KEY, NAME (optional)
# Example:
# 192.168.1.1, fmtXXXXXXXXXXXXXXXXXXXXXXXXXXXX, HQ-FortiGate
`

// LoadTargets reads a legacy targets file with one "IP, API_KEY[, NAME]"
// entry per line. Blank lines and lines starting with # are skipped, and
// the name defaults to the IP.
func LoadTargets(path string) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Targets file not found: "+path,
				"Run 'cmon init --targets-template "+path+"' to create one.")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read targets file: "+path,
			"Check file permissions")
	}
	defer f.Close()

	return parseTargets(f, path)
}

func parseTargets(r io.Reader, path string) ([]Device, error) {
	var devices []Device
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("%s line %d: expected 'IP, API_KEY[, NAME]'", path, lineNo),
				"Separate the address and API key with a comma.")
		}

		d := Device{
			Host:   strings.TrimSpace(parts[0]),
			APIKey: strings.TrimSpace(parts[1]),
		}
		if len(parts) > 2 {
			d.Name = strings.TrimSpace(parts[2])
		}
		devices = append(devices, ExpandDevice(d))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read targets file: "+path,
			"Check the file isn't truncated or binary")
	}
	return devices, nil
}

// WriteTargetsTemplate creates a commented example targets file. It refuses
// to overwrite an existing file.
func WriteTargetsTemplate(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return errors.New(errors.ErrConfig,
				"Targets file already exists: "+path,
				"Edit it directly or pick another path.")
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create targets file: "+path,
			"Check directory permissions")
	}
	if _, err := f.WriteString(targetsTemplate); err != nil {
		f.Close()
		return errors.WrapWithCode(err, errors.ErrConfig, "Cannot write targets file: "+path, "")
	}
	return f.Close()
}
