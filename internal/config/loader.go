package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "cmon.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/cmon"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. CMON_POLL_INTERVAL=1m.
	EnvPrefix = "CMON"
)

// Load reads config from the specified path, applies defaults and
// environment overrides, expands ${VAR} references and merges the legacy
// targets file if one is configured. It does not validate.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'cmon init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. cmon.yaml in current directory
// 3. ~/.config/cmon/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads the config Find locates for explicit. With no config
// file it returns the defaults with environment overrides applied, which is
// enough to run against a --targets file.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+displayPath(path))
	}

	for i := range cfg.Devices {
		cfg.Devices[i] = ExpandDevice(cfg.Devices[i])
	}

	if cfg.TargetsFile != "" {
		targetsPath := ExpandTilde(cfg.TargetsFile)
		if !filepath.IsAbs(targetsPath) && path != "" {
			targetsPath = filepath.Join(filepath.Dir(path), targetsPath)
		}
		devices, err := LoadTargets(targetsPath)
		if err != nil {
			return nil, err
		}
		cfg.Devices = append(cfg.Devices, devices...)
	}

	return cfg, nil
}

// setDefaults registers every key with viper. AutomaticEnv only resolves
// keys viper already knows about, so this is what makes CMON_* work.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("targets_file", "")
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.timeout", d.Poll.Timeout)
	v.SetDefault("poll.max_duration", d.Poll.MaxDuration)
	v.SetDefault("poll.max_cycles", d.Poll.MaxCycles)
	v.SetDefault("thresholds.memory.warning", d.Thresholds.Memory.Warning)
	v.SetDefault("thresholds.memory.critical", d.Thresholds.Memory.Critical)
	v.SetDefault("thresholds.cpu.warning", d.Thresholds.CPU.Warning)
	v.SetDefault("thresholds.cpu.critical", d.Thresholds.CPU.Critical)
	v.SetDefault("ranking.top_n", d.Ranking.TopN)
	v.SetDefault("ranking.tolerance", d.Ranking.Tolerance)
	v.SetDefault("ranking.leak_percent", d.Ranking.LeakPercent)
	v.SetDefault("ranking.low_memory_processes", d.Ranking.LowMemoryProcesses)
	v.SetDefault("ranking.low_memory_limit_mb", d.Ranking.LowMemoryLimitMB)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
	v.SetDefault("api.insecure_skip_verify", d.API.InsecureSkipVerify)
	v.SetDefault("api.requests_per_second", d.API.RequestsPerSecond)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("logs.dir", d.Logs.Dir)
	v.SetDefault("logs.prefix", d.Logs.Prefix)
	v.SetDefault("logs.keep_runs", d.Logs.KeepRuns)
	v.SetDefault("logs.keep_days", d.Logs.KeepDays)
	v.SetDefault("logs.fsync", d.Logs.Fsync)
	v.SetDefault("output.color", d.Output.Color)
}

func displayPath(path string) string {
	if path == "" {
		return "your environment overrides"
	}
	return path
}
