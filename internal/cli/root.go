package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/logger"
	"github.com/cmon-dev/cmon/internal/ui"
)

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// Global flags
var (
	cfgFile   string
	debugFlag bool
	colorFlag string
)

// rootCmd is the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "cmon",
	Short: "Watch FortiGate appliances for conserve mode",
	Long: `cmon polls FortiGate appliances over the REST API, classifies memory and
CPU against the conserve mode thresholds, and logs every snapshot.

Each device gets three log files per run: a human-readable log, the raw
API responses (JSONL) and one summary record per cycle (JSONL).

Examples:
  cmon init                     Create cmon.yaml
  cmon check                    Poll every device once
  cmon run                      Monitor until Ctrl+C
  cmon run --duration 2h        Monitor for two hours
  cmon run --targets fortigate_config.txt --dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDebug(debugFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./cmon.yaml, then ~/.config/cmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging (also CMON_DEBUG=1)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "", "color output: auto, always, never (default from config)")
}

// Execute runs the root command and exits with a non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, silent := errors.GetExitCode(err); !silent {
			fmt.Fprint(os.Stderr, formatError(err))
		}
		os.Exit(errors.ExitStatus(err))
	}
}

// formatError renders err for the terminal. Structured errors already
// carry their own layout.
func formatError(err error) string {
	if _, ok := err.(*errors.Error); ok {
		return err.Error()
	}
	return ui.SymbolFail + " " + err.Error() + "\n"
}
