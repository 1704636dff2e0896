package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cmon-dev/cmon/internal/config"
	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/ui"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path            string // Config file to write (default ./cmon.yaml)
	Overwrite       bool   // Overwrite existing config without asking
	NonInteractive  bool   // Skip prompts, use flags and env
	Name            string // Device name
	Host            string // Device address
	APIKey          string // API key or ${VAR} reference
	TargetsTemplate string // Write a legacy targets file here instead
}

var initOpts InitOptions

// initCmd creates a config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a cmon.yaml config file",
	Long: `Create a cmon.yaml config file with one or more devices.

The API key can be written as a ${VAR} reference so the secret stays in the
environment, e.g. ${HQ_API_KEY}.

Use --targets-template to write a legacy 'IP, API_KEY, NAME' targets file
instead.

Examples:
  cmon init
  cmon init --non-interactive --host 10.0.0.1 --api-key '${FW1_KEY}' --name fw1
  cmon init --targets-template fortigate_config.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		applyInitDefaults(&opts, getInitDefaults())
		return Init(opts)
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOpts.Path, "output", "o", "", "config file to write (default ./cmon.yaml)")
	initCmd.Flags().BoolVarP(&initOpts.Overwrite, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "skip prompts (also CMON_NON_INTERACTIVE or CI)")
	initCmd.Flags().StringVar(&initOpts.Name, "name", "", "device name")
	initCmd.Flags().StringVar(&initOpts.Host, "host", "", "device address")
	initCmd.Flags().StringVar(&initOpts.APIKey, "api-key", "", "REST API key, or a ${VAR} reference")
	initCmd.Flags().StringVar(&initOpts.TargetsTemplate, "targets-template", "", "write a legacy targets file template to this path")
	rootCmd.AddCommand(initCmd)
}

// initDefaults are values for init picked up from the environment.
type initDefaults struct {
	Host           string
	Name           string
	APIKey         string
	NonInteractive bool
}

// getInitDefaults reads CMON_HOST, CMON_DEVICE_NAME, CMON_API_KEY and
// CMON_NON_INTERACTIVE. CI also disables prompts.
func getInitDefaults() initDefaults {
	d := initDefaults{
		Host:   os.Getenv("CMON_HOST"),
		Name:   os.Getenv("CMON_DEVICE_NAME"),
		APIKey: os.Getenv("CMON_API_KEY"),
	}
	if v := os.Getenv("CMON_NON_INTERACTIVE"); v == "1" || strings.EqualFold(v, "true") {
		d.NonInteractive = true
	}
	if os.Getenv("CI") != "" {
		d.NonInteractive = true
	}
	return d
}

// applyInitDefaults fills options the flags left empty.
func applyInitDefaults(opts *InitOptions, d initDefaults) {
	if opts.Host == "" {
		opts.Host = d.Host
	}
	if opts.Name == "" {
		opts.Name = d.Name
	}
	if opts.APIKey == "" {
		opts.APIKey = d.APIKey
	}
	if d.NonInteractive {
		opts.NonInteractive = true
	}
}

// Init writes a new config file, or a targets template when requested.
func Init(opts InitOptions) error {
	if opts.TargetsTemplate != "" {
		path := config.ExpandTilde(opts.TargetsTemplate)
		if err := config.WriteTargetsTemplate(path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s Created %s\n\n", ui.SymbolSuccess, path)
		fmt.Fprintf(stdout, "Add one 'IP, API_KEY, NAME' line per device, then run:\n  cmon run --targets %s\n", path)
		return nil
	}

	configPath := opts.Path
	if configPath == "" {
		configPath = filepath.Join(".", config.ConfigFileName)
	}
	configPath = config.ExpandTilde(configPath)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(stdout, "Cancelled.")
			return nil
		}
	}

	var devices []config.Device
	if opts.NonInteractive {
		if strings.TrimSpace(opts.Host) == "" || strings.TrimSpace(opts.APIKey) == "" {
			return errors.New(errors.ErrConfig,
				"Device host and API key are required in non-interactive mode",
				"Provide --host and --api-key, or run interactively")
		}
		devices = append(devices, config.Device{Name: opts.Name, Host: opts.Host, APIKey: opts.APIKey})
	} else {
		var err error
		devices, err = promptDevices(opts)
		if err != nil {
			return err
		}
	}

	data, err := buildConfigFile(devices)
	if err != nil {
		return err
	}

	// 0600: the file may hold API keys.
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Fprintf(stdout, "%s Created %s with %d device(s)\n\n", ui.SymbolSuccess, configPath, len(devices))
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintln(stdout, "  cmon check  - Poll every device once")
	fmt.Fprintln(stdout, "  cmon run    - Monitor until Ctrl+C")
	return nil
}

// buildConfigFile renders the default config with devices as YAML.
func buildConfigFile(devices []config.Device) ([]byte, error) {
	cfg := config.DefaultConfig()
	for _, d := range devices {
		d = config.Device{
			Name:   strings.TrimSpace(d.Name),
			Host:   strings.TrimSpace(d.Host),
			APIKey: strings.TrimSpace(d.APIKey),
		}
		if d.Name == "" {
			d.Name = d.Host
		}
		cfg.Devices = append(cfg.Devices, d)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# Conserve mode monitor configuration
# Run 'cmon check' to test connectivity, 'cmon run' to start monitoring.
# api_key accepts ${VAR} references to keep secrets out of this file.

`
	return append([]byte(header), data...), nil
}

// promptDevices asks for devices until the user is done.
func promptDevices(opts InitOptions) ([]config.Device, error) {
	var devices []config.Device
	name, host, apiKey := opts.Name, opts.Host, opts.APIKey

	for {
		addAnother := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Device address").
					Description("IP or hostname of the FortiGate management interface").
					Placeholder("192.168.1.99").
					Value(&host).
					Validate(func(s string) error {
						s = strings.TrimSpace(s)
						if s == "" {
							return fmt.Errorf("address is required")
						}
						if strings.ContainsAny(s, " \t") {
							return fmt.Errorf("address cannot contain whitespace")
						}
						return nil
					}),
				huh.NewInput().
					Title("Device name").
					Description("Used in log file names (leave empty to use the address)").
					Placeholder("branch-fw").
					Value(&name),
				huh.NewInput().
					Title("API key").
					Description("REST API admin token, or a ${VAR} reference").
					EchoMode(huh.EchoModePassword).
					Value(&apiKey).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("API key is required")
						}
						return nil
					}),
			),
			huh.NewGroup(
				huh.NewConfirm().
					Title("Add another device?").
					Value(&addAnother),
			),
		)

		if err := form.Run(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Check terminal compatibility or use --non-interactive flag")
		}

		devices = append(devices, config.Device{Name: name, Host: host, APIKey: apiKey})
		if !addAnother {
			return devices, nil
		}
		name, host, apiKey = "", "", ""
	}
}
