package config

import (
	"io"

	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/monitor/logs"
	"github.com/cmon-dev/cmon/pkg/fortios"
)

// Targets returns the configured devices as monitor targets.
func (c *Config) Targets() []monitor.DeviceTarget {
	targets := make([]monitor.DeviceTarget, 0, len(c.Devices))
	for _, d := range c.Devices {
		targets = append(targets, monitor.DeviceTarget{Name: d.Name, Host: d.Host, APIKey: d.APIKey})
	}
	return targets
}

// Policy returns the threshold bands.
func (c *Config) Policy() monitor.Policy {
	return monitor.Policy{
		CPU:    monitor.Bands{Warning: c.Thresholds.CPU.Warning, Critical: c.Thresholds.CPU.Critical},
		Memory: monitor.Bands{Warning: c.Thresholds.Memory.Warning, Critical: c.Thresholds.Memory.Critical},
	}
}

// RankOptions returns the process ranking settings.
func (c *Config) RankOptions() monitor.RankOptions {
	return monitor.RankOptions{
		TopN:                c.Ranking.TopN,
		Tolerance:           c.Ranking.Tolerance,
		LeakPercent:         c.Ranking.LeakPercent,
		LowMemoryProcesses:  c.Ranking.LowMemoryProcesses,
		LowMemoryLimitBytes: int64(c.Ranking.LowMemoryLimitMB * 1024 * 1024),
	}
}

// RunConfig returns the settings shared by every device session.
func (c *Config) RunConfig() monitor.RunConfig {
	return monitor.RunConfig{
		Interval:    c.Poll.Interval,
		Timeout:     c.Poll.Timeout,
		MaxDuration: c.Poll.MaxDuration,
		MaxCycles:   c.Poll.MaxCycles,
		Backoff: monitor.Backoff{
			MaxAttempts:  c.Retry.MaxAttempts,
			InitialDelay: c.Retry.InitialDelay,
			MaxDelay:     c.Retry.MaxDelay,
			Multiplier:   c.Retry.Multiplier,
		},
		Rank:   c.RankOptions(),
		Policy: c.Policy(),
	}
}

// ClientOptions returns the API client settings.
func (c *Config) ClientOptions() fortios.Options {
	return fortios.Options{
		Timeout:            c.Poll.Timeout,
		InsecureSkipVerify: c.API.InsecureSkipVerify,
		RequestsPerSecond:  c.API.RequestsPerSecond,
		Burst:              c.API.Burst,
	}
}

// LogOptions returns the device log settings. echo may be nil.
func (c *Config) LogOptions(echo io.Writer) logs.Options {
	return logs.Options{
		Dir:    c.Logs.Dir,
		Prefix: c.Logs.Prefix,
		Fsync:  c.Logs.Fsync,
		Policy: c.Policy(),
		Echo:   echo,
	}
}
