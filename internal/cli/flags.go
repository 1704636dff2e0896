package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cmon-dev/cmon/internal/config"
	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/ui"
)

// PollFlags override the poll section of the config for one invocation.
type PollFlags struct {
	Targets  string
	Interval string
	Duration string
	Cycles   int
}

// loadConfig finds and loads the config, merges a --targets file, applies
// flag overrides and validates the result for a run.
func loadConfig(flags PollFlags) (*config.Config, error) {
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}

	if flags.Targets != "" {
		devices, err := config.LoadTargets(config.ExpandTilde(flags.Targets))
		if err != nil {
			return nil, err
		}
		cfg.Devices = append(cfg.Devices, devices...)
	}

	if err := applyPollFlags(cfg, flags); err != nil {
		return nil, err
	}

	if err := config.ValidateRunnable(cfg); err != nil {
		return nil, err
	}

	mode := cfg.Output.Color
	if colorFlag != "" {
		mode = colorFlag
	}
	ui.SetColorMode(mode, stdout)

	return cfg, nil
}

func applyPollFlags(cfg *config.Config, flags PollFlags) error {
	if flags.Interval != "" {
		d, err := parseDurationFlag("--interval", flags.Interval)
		if err != nil {
			return err
		}
		cfg.Poll.Interval = d
		// Keep the request timeout under a shortened interval.
		if cfg.Poll.Timeout >= d {
			cfg.Poll.Timeout = d / 2
		}
	}
	if flags.Duration != "" {
		d, err := parseDurationFlag("--duration", flags.Duration)
		if err != nil {
			return err
		}
		cfg.Poll.MaxDuration = d
	}
	if flags.Cycles > 0 {
		cfg.Poll.MaxCycles = flags.Cycles
	}
	return nil
}

func parseDurationFlag(name, value string) (time.Duration, error) {
	d, err := parseDurationWithDays(value)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid %s", value, name),
			"Try something like 30s, 5m, 2h or 1d.")
	}
	return d, nil
}

// parseDurationWithDays parses a duration string that may include 'd' for days.
func parseDurationWithDays(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		d, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
