package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cmon-dev/cmon/internal/config"
	"github.com/cmon-dev/cmon/internal/dashboard"
	"github.com/cmon-dev/cmon/internal/lock"
	"github.com/cmon-dev/cmon/internal/logger"
	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/monitor/logs"
	"github.com/cmon-dev/cmon/internal/ui"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Poll      PollFlags
	Dashboard bool // Live TUI instead of the console echo
	Quiet     bool // No console echo
}

var runOpts RunOptions

// runCmd monitors every configured device until stopped
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor devices until stopped",
	Long: `Poll every configured device on a fixed cadence, classify memory and CPU
against the conserve mode thresholds and write the three logs per device.

Monitoring runs until Ctrl+C, --duration elapses, or --cycles is reached.
A device whose API key is rejected stops on its own; the others keep going.

Examples:
  cmon run
  cmon run --interval 1m --duration 8h
  cmon run --targets fortigate_config.txt
  cmon run --dashboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Run(ctx, runOpts)
	},
}

func init() {
	addPollFlags(runCmd, &runOpts.Poll)
	runCmd.Flags().BoolVar(&runOpts.Dashboard, "dashboard", false, "show a live dashboard instead of the log echo")
	runCmd.Flags().BoolVarP(&runOpts.Quiet, "quiet", "q", false, "don't echo the log to the console")
	rootCmd.AddCommand(runCmd)
}

func addPollFlags(cmd *cobra.Command, flags *PollFlags) {
	cmd.Flags().StringVar(&flags.Targets, "targets", "", "legacy targets file with 'IP, API_KEY, NAME' lines")
	cmd.Flags().StringVar(&flags.Interval, "interval", "", "time between polls (e.g. 30s, 1m)")
	cmd.Flags().StringVar(&flags.Duration, "duration", "", "stop after this long (e.g. 2h, 1d)")
	cmd.Flags().IntVar(&flags.Cycles, "cycles", 0, "stop each device after this many cycles")
}

// Run loads the config and monitors until ctx is cancelled or a limit is hit.
func Run(ctx context.Context, opts RunOptions) error {
	cfg, err := loadConfig(opts.Poll)
	if err != nil {
		return err
	}
	log := logger.NewEnvLogger("run")

	runLock, err := lock.Acquire(logDir(cfg), "cmon run")
	if err != nil {
		return err
	}
	defer func() {
		if rerr := runLock.Release(); rerr != nil {
			log.Warn("release logs lock: %v", rerr)
		}
	}()

	if cfg.Logs.KeepRuns > 0 || cfg.Logs.KeepDays > 0 {
		removed, err := logs.Cleanup(cfg.Logs.Dir, cfg.Logs.KeepRuns, cfg.Logs.KeepDays)
		if err != nil {
			log.Warn("log retention cleanup failed: %v", err)
		} else if removed > 0 {
			log.Info("removed %d old run(s) from %s", removed, cfg.Logs.Dir)
		}
	}

	var echo io.Writer
	if !opts.Quiet && !opts.Dashboard {
		echo = ui.NewConsole(stdout)
	}

	started := time.Now()
	pool := monitor.NewPool(cfg.ClientOptions())
	defer pool.Close()

	orch := monitor.NewOrchestrator(
		cfg.Targets(),
		monitor.NewAPIFetcher(pool),
		logs.NewFactory(started, cfg.LogOptions(echo)),
		cfg.RunConfig(),
		monitor.WithLogger(logger.NewEnvLogger("orchestrator")),
	)

	if !opts.Dashboard {
		printBanner(cfg)
	}

	var result *monitor.Result
	if opts.Dashboard {
		// Operational logs would tear the alt screen.
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)
		result, err = dashboard.Run(ctx, orch, cfg.Policy())
	} else {
		result, err = orch.Run(ctx)
	}

	if result != nil {
		printRunSummary(cfg, result, started)
	}
	return err
}

func printBanner(cfg *config.Config) {
	headerStyle := lipgloss.NewStyle().Foreground(ui.ColorSecondary).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	fmt.Fprintln(stdout, headerStyle.Render(fmt.Sprintf("Monitoring %d device(s)", len(cfg.Devices))))
	for _, d := range cfg.Devices {
		fmt.Fprintf(stdout, "  %s %s\n", d.Name, mutedStyle.Render("("+d.Host+")"))
	}

	duration := "until stopped"
	if cfg.Poll.MaxDuration > 0 {
		duration = "for " + cfg.Poll.MaxDuration.String()
	}
	fmt.Fprintln(stdout, mutedStyle.Render(fmt.Sprintf(
		"Interval %s, %s. Memory bands %.0f/%.0f%%, CPU bands %.0f/%.0f%%. Logs in %s",
		cfg.Poll.Interval, duration,
		cfg.Thresholds.Memory.Warning, cfg.Thresholds.Memory.Critical,
		cfg.Thresholds.CPU.Warning, cfg.Thresholds.CPU.Critical,
		cfg.Logs.Dir)))
	fmt.Fprintln(stdout, mutedStyle.Render("Press Ctrl+C to stop"))
	fmt.Fprintln(stdout)
}

func printRunSummary(cfg *config.Config, result *monitor.Result, started time.Time) {
	headerStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	failStyle := lipgloss.NewStyle().Foreground(ui.ColorError)

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, headerStyle.Render(fmt.Sprintf("Monitoring stopped after %s", result.Duration.Round(time.Second))))
	for _, s := range result.Sessions {
		line := fmt.Sprintf("  %s: %d cycle(s), %d gap(s)", s.Target.Name, s.Cycles, s.Gaps)
		if s.Reason == monitor.ReasonAuthFailure {
			fmt.Fprintln(stdout, failStyle.Render(ui.SymbolFail+line+" - credential rejected"))
		} else {
			fmt.Fprintln(stdout, ui.SymbolSuccess+line)
		}
		files := logs.NewRunFiles(logDir(cfg), cfg.Logs.Prefix, s.Target.Name, started)
		fmt.Fprintln(stdout, mutedStyle.Render("    "+files.Text))
	}
}

func logDir(cfg *config.Config) string {
	dir, err := logs.ExpandDir(cfg.Logs.Dir)
	if err != nil {
		return cfg.Logs.Dir
	}
	return dir
}
