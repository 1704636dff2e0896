package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete cmon.yaml configuration file.
type Config struct {
	Version     int              `yaml:"version" mapstructure:"version" validate:"gte=0"`
	Devices     []Device         `yaml:"devices" mapstructure:"devices" validate:"dive"`
	TargetsFile string           `yaml:"targets_file,omitempty" mapstructure:"targets_file"`
	Poll        PollConfig       `yaml:"poll" mapstructure:"poll"`
	Thresholds  ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Ranking     RankingConfig    `yaml:"ranking" mapstructure:"ranking"`
	Retry       RetryConfig      `yaml:"retry" mapstructure:"retry"`
	API         APIConfig        `yaml:"api" mapstructure:"api"`
	Logs        LogsConfig       `yaml:"logs" mapstructure:"logs"`
	Output      OutputConfig     `yaml:"output" mapstructure:"output"`
}

// Device is one monitored appliance.
type Device struct {
	// Name is the friendly name used in log file names. Defaults to Host.
	Name string `yaml:"name,omitempty" mapstructure:"name" validate:"omitempty,max=64"`

	// Host is the appliance address, optionally with :port or a scheme.
	// Supports ${VAR} expansion.
	Host string `yaml:"host" mapstructure:"host" validate:"required"`

	// APIKey is the REST API bearer token. Supports ${VAR} expansion so the
	// key can stay out of the file.
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
}

// PollConfig controls the polling cadence.
type PollConfig struct {
	// Interval between cycle starts.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`

	// Timeout bounds each API request. Must be shorter than Interval.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// MaxDuration stops the run after this long (0 = indefinite).
	MaxDuration time.Duration `yaml:"max_duration" mapstructure:"max_duration" validate:"gte=0"`

	// MaxCycles stops each device after this many cycles (0 = unlimited).
	MaxCycles int `yaml:"max_cycles" mapstructure:"max_cycles" validate:"gte=0"`
}

// ThresholdsConfig holds the classification bands.
type ThresholdsConfig struct {
	Memory Thresholds `yaml:"memory" mapstructure:"memory"`
	CPU    Thresholds `yaml:"cpu" mapstructure:"cpu"`
}

// Thresholds are percentages where a metric becomes WARNING and CRITICAL.
type Thresholds struct {
	Warning  float64 `yaml:"warning" mapstructure:"warning" validate:"gt=0,lte=100"`
	Critical float64 `yaml:"critical" mapstructure:"critical" validate:"gt=0,lte=100"`
}

// RankingConfig controls process ranking and validation.
type RankingConfig struct {
	TopN int `yaml:"top_n" mapstructure:"top_n" validate:"gte=1,lte=500"`

	// Tolerance is the allowed gap in percentage points between a reported
	// process memory percentage and bytes/total.
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance" validate:"gte=0"`

	// LeakPercent flags a single process above this share of memory (0 = off).
	LeakPercent float64 `yaml:"leak_percent" mapstructure:"leak_percent" validate:"gte=0,lte=100"`

	LowMemoryProcesses []string `yaml:"low_memory_processes" mapstructure:"low_memory_processes"`
	LowMemoryLimitMB   float64  `yaml:"low_memory_limit_mb" mapstructure:"low_memory_limit_mb" validate:"gte=0"`
}

// RetryConfig controls backoff on connection failures.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=20"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`
	Multiplier   float64       `yaml:"multiplier" mapstructure:"multiplier" validate:"gte=1"`
}

// APIConfig controls the HTTP client.
type APIConfig struct {
	// InsecureSkipVerify accepts self-signed appliance certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`

	// RequestsPerSecond limits calls per device (0 = unlimited).
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// LogsConfig controls where run logs go and how long they are kept.
type LogsConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Prefix string `yaml:"prefix" mapstructure:"prefix" validate:"required,max=64"`

	// KeepRuns keeps only the newest N runs per device (0 = keep all).
	KeepRuns int `yaml:"keep_runs" mapstructure:"keep_runs" validate:"gte=0"`

	// KeepDays removes runs older than N days (0 = keep all).
	KeepDays int `yaml:"keep_days" mapstructure:"keep_days" validate:"gte=0"`

	// Fsync syncs every record to disk before continuing.
	Fsync bool `yaml:"fsync" mapstructure:"fsync"`
}

// OutputConfig controls console output.
type OutputConfig struct {
	// Color mode: auto, always, never.
	Color string `yaml:"color" mapstructure:"color" validate:"oneof=auto always never"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Devices: []Device{},
		Poll: PollConfig{
			Interval: 30 * time.Second,
			Timeout:  10 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			Memory: Thresholds{Warning: 79, Critical: 88},
			CPU:    Thresholds{Warning: 80, Critical: 90},
		},
		Ranking: RankingConfig{
			TopN:               30,
			Tolerance:          0.5,
			LeakPercent:        50,
			LowMemoryProcesses: []string{"insmod", "getty", "lldptx", "dhcpcd", "kmiglogd"},
			LowMemoryLimitMB:   5,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
		},
		API: APIConfig{
			InsecureSkipVerify: true,
			RequestsPerSecond:  4,
			Burst:              2,
		},
		Logs: LogsConfig{
			Dir:    "logs",
			Prefix: "fortigate",
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
