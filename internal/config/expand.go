package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// envRef matches ${NAME} references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandTilde resolves a leading ~ or ~/ against the home directory. Paths
// are returned unchanged when the home directory is unknown.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Expand replaces ${NAME} references with environment variable values.
// Unset variables expand to the empty string. A bare $ is left alone since
// API keys may legitimately contain one.
func Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// ExpandDevice expands environment references in a device's host and key,
// and defaults the name to the host.
func ExpandDevice(d Device) Device {
	d.Name = strings.TrimSpace(d.Name)
	d.Host = strings.TrimSpace(Expand(d.Host))
	d.APIKey = strings.TrimSpace(Expand(d.APIKey))
	if d.Name == "" {
		d.Name = d.Host
	}
	return d
}
