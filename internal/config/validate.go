package config

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/monitor/logs"
)

var validate = validator.New()

// Validate checks the config for errors and returns structured error messages.
// Field-level rules come from the validate tags; the cross-field rules
// (bands ordered, timeout under the interval, unique names) are checked here.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but cmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade cmon to the latest release.")
	}

	if err := validate.Struct(cfg); err != nil {
		return fieldError(err)
	}

	if err := validateBands("memory", cfg.Thresholds.Memory); err != nil {
		return err
	}
	if err := validateBands("cpu", cfg.Thresholds.CPU); err != nil {
		return err
	}

	if cfg.Poll.Timeout >= cfg.Poll.Interval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("poll.timeout (%s) must be shorter than poll.interval (%s)", cfg.Poll.Timeout, cfg.Poll.Interval),
			"A request that can outlive the interval would overlap the next cycle. Lower the timeout or raise the interval.")
	}

	if cfg.Retry.MaxDelay > 0 && cfg.Retry.InitialDelay > cfg.Retry.MaxDelay {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("retry.initial_delay (%s) is larger than retry.max_delay (%s)", cfg.Retry.InitialDelay, cfg.Retry.MaxDelay),
			"Set initial_delay at or below max_delay.")
	}

	return validateDevices(cfg.Devices)
}

// ValidateRunnable is Validate plus the requirement that at least one
// device is configured.
func ValidateRunnable(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if len(cfg.Devices) == 0 {
		return errors.New(errors.ErrConfig,
			"No devices configured",
			"Add devices to cmon.yaml with 'cmon init', or pass a targets file with --targets.")
	}
	return nil
}

func validateBands(metric string, t Thresholds) error {
	if t.Warning >= t.Critical {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("thresholds.%s.warning (%.1f) must be below critical (%.1f)", metric, t.Warning, t.Critical),
			"Swap the values or lower the warning threshold.")
	}
	return nil
}

func validateDevices(devices []Device) error {
	// Keyed by the log file form of the name: "hq.1" and "HQ_1" share files.
	seen := make(map[string]string, len(devices))
	for i, d := range devices {
		label := d.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if strings.ContainsAny(d.Host, " \t") {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Device '%s' has an invalid host '%s'", label, d.Host),
				"Use an address like 192.168.1.1, fw.example.com:8443 or https://fw.example.com.")
		}
		key := strings.ToLower(logs.SanitizeName(d.Name))
		if prev, ok := seen[key]; ok {
			msg := fmt.Sprintf("Device name '%s' is used more than once", d.Name)
			if !strings.EqualFold(prev, d.Name) {
				msg = fmt.Sprintf("Device names '%s' and '%s' map to the same log files", prev, d.Name)
			}
			return errors.New(errors.ErrConfig, msg,
				"Device names pick the log file names, so each must be unique. Give one of them a 'name'.")
		}
		seen[key] = d.Name
	}
	return nil
}

// fieldError turns the first validator failure into a structured error
// naming the YAML path of the field.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid config", "Check cmon.yaml against 'cmon init' output.")
	}

	fe := verrs[0]
	path := yamlPath(fe.Namespace())

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", path)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s (got '%v')", path, fe.Param(), fe.Value())
	case "gt", "gte", "lt", "lte", "min", "max":
		msg = fmt.Sprintf("%s must be %s %s (got %v)", path, comparison(fe.Tag()), fe.Param(), fe.Value())
	default:
		msg = fmt.Sprintf("%s failed the '%s' check", path, fe.Tag())
	}

	suggestion := "Check the '" + strings.SplitN(path, ".", 2)[0] + "' section in cmon.yaml."
	if strings.HasSuffix(path, ".api_key") || strings.HasSuffix(path, ".host") {
		suggestion = "If the value references ${VAR}, make sure that variable is exported."
	}
	return errors.WrapWithCode(err, errors.ErrConfig, msg, suggestion)
}

func comparison(tag string) string {
	switch tag {
	case "gt":
		return ">"
	case "gte", "min":
		return ">="
	case "lt":
		return "<"
	default:
		return "<="
	}
}

// yamlPath maps a validator namespace like Config.Devices[0].APIKey onto
// the YAML keys, devices[0].api_key.
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		idx := ""
		if open := strings.IndexByte(p, '['); open >= 0 {
			p, idx = p[:open], p[open:]
		}
		parts[i] = snake(p) + idx
	}
	return strings.Join(parts, ".")
}

var fieldNames = map[string]string{
	"APIKey":             "api_key",
	"API":                "api",
	"CPU":                "cpu",
	"TopN":               "top_n",
	"LowMemoryLimitMB":   "low_memory_limit_mb",
	"InsecureSkipVerify": "insecure_skip_verify",
}

func snake(s string) string {
	if n, ok := fieldNames[s]; ok {
		return n
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
