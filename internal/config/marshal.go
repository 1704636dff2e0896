package config

import "time"

// yaml.v3 writes time.Duration as integer nanoseconds. These mirrors keep
// durations human-readable ("30s") in files written by 'cmon init'; viper
// reads either form back.

type pollYAML struct {
	Interval    string `yaml:"interval"`
	Timeout     string `yaml:"timeout"`
	MaxDuration string `yaml:"max_duration"`
	MaxCycles   int    `yaml:"max_cycles"`
}

// MarshalYAML implements yaml.Marshaler.
func (p PollConfig) MarshalYAML() (interface{}, error) {
	return pollYAML{
		Interval:    formatDuration(p.Interval),
		Timeout:     formatDuration(p.Timeout),
		MaxDuration: formatDuration(p.MaxDuration),
		MaxCycles:   p.MaxCycles,
	}, nil
}

type retryYAML struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
}

// MarshalYAML implements yaml.Marshaler.
func (r RetryConfig) MarshalYAML() (interface{}, error) {
	return retryYAML{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: formatDuration(r.InitialDelay),
		MaxDelay:     formatDuration(r.MaxDelay),
		Multiplier:   r.Multiplier,
	}, nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}
