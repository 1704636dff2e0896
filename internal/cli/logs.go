package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cmon-dev/cmon/internal/config"
	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/lock"
	"github.com/cmon-dev/cmon/internal/monitor/logs"
	"github.com/cmon-dev/cmon/internal/ui"
)

// logsCmd implements `cmon logs` for listing and pruning run logs.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List and clean up monitoring logs",
	Long: `List the log files written by 'cmon run', one entry per device per run.

Each entry groups the text log, the raw JSONL log and the summary JSONL log.

Commands:
  cmon logs                  List runs, newest first
  cmon logs clean            Apply logs.keep_runs / logs.keep_days
  cmon logs clean --all      Delete every run
  cmon logs clean --older 7d Delete runs older than a duration
  cmon logs clean --keep 5   Keep the newest 5 runs per device
  cmon logs unlock           Remove a lock left by a crashed monitor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listLogs(time.Now())
	},
}

// logsCleanCmd implements `cmon logs clean`.
var logsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old run logs",
	Long: `Delete old run logs.

Without flags the retention settings from the config are applied:
  - logs.keep_days: delete runs older than N days
  - logs.keep_runs: keep only the newest N runs per device`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanLogs(logsCleanFlags, time.Now())
	},
}

// logsUnlockCmd implements `cmon logs unlock`.
var logsUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Remove the logs directory lock",
	Long: `Remove the lock 'cmon run' holds on the logs directory.

Only needed when a monitor died without cleaning up and its lock can't be
detected as stale, e.g. it ran on another host sharing the directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return unlockLogs()
	},
}

// LogsCleanFlags select what `cmon logs clean` removes.
type LogsCleanFlags struct {
	All   bool
	Older string
	Keep  int
}

var logsCleanFlags LogsCleanFlags

func init() {
	logsCleanCmd.Flags().BoolVar(&logsCleanFlags.All, "all", false, "delete every run")
	logsCleanCmd.Flags().StringVar(&logsCleanFlags.Older, "older", "", "delete runs older than duration (e.g. 7d, 24h)")
	logsCleanCmd.Flags().IntVar(&logsCleanFlags.Keep, "keep", 0, "keep only the newest N runs per device")
	logsCmd.AddCommand(logsCleanCmd)
	logsCmd.AddCommand(logsUnlockCmd)
	rootCmd.AddCommand(logsCmd)
}

func logsConfig() (config.LogsConfig, error) {
	cfg, _, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return config.LogsConfig{}, err
	}
	mode := cfg.Output.Color
	if colorFlag != "" {
		mode = colorFlag
	}
	ui.SetColorMode(mode, stdout)
	return cfg.Logs, nil
}

func listLogs(now time.Time) error {
	logsCfg, err := logsConfig()
	if err != nil {
		return err
	}

	runs, err := logs.ListRuns(logsCfg.Dir)
	if err != nil {
		return err
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Foreground(ui.ColorSecondary).Bold(true)

	dir, _ := logs.ExpandDir(logsCfg.Dir)
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No run logs found.")
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "Logs are stored in: %s\n", dir)
		fmt.Fprintln(stdout, "Run 'cmon run' to start monitoring.")
		return nil
	}

	fmt.Fprintln(stdout, headerStyle.Render("Monitoring Runs"))
	fmt.Fprintln(stdout)

	columns := []ui.TableColumn{
		{Title: "Run", Width: 44},
		{Title: "Files", Width: 5},
		{Title: "Size", Width: 9},
		{Title: "Started", Width: 16},
	}
	var rows [][]string
	var total int64
	for _, r := range runs {
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(len(r.Files)),
			humanize.IBytes(uint64(r.Size)),
			humanize.RelTime(r.Started, now, "ago", "from now"),
		})
		total += r.Size
	}
	fmt.Fprintln(stdout, ui.RenderSimpleTable(columns, rows))
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Total: %d run(s), %s in %s\n", len(runs), humanize.IBytes(uint64(total)), dir)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, mutedStyle.Render("Retention settings:"))
	if logsCfg.KeepRuns == 0 && logsCfg.KeepDays == 0 {
		fmt.Fprintf(stdout, "  %s\n", mutedStyle.Render("none (logs are kept forever)"))
	}
	if logsCfg.KeepRuns > 0 {
		fmt.Fprintf(stdout, "  %s\n", mutedStyle.Render(fmt.Sprintf("keep_runs: %d", logsCfg.KeepRuns)))
	}
	if logsCfg.KeepDays > 0 {
		fmt.Fprintf(stdout, "  %s\n", mutedStyle.Render(fmt.Sprintf("keep_days: %d", logsCfg.KeepDays)))
	}
	return nil
}

func cleanLogs(flags LogsCleanFlags, now time.Time) error {
	logsCfg, err := logsConfig()
	if err != nil {
		return err
	}

	var removed int
	switch {
	case flags.All:
		removed, err = logs.CleanAll(logsCfg.Dir)

	case flags.Older != "":
		age, perr := parseDurationWithDays(flags.Older)
		if perr != nil || age <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid duration '%s'", flags.Older),
				"Use format like '7d' for days, '24h' for hours, or '30m' for minutes.")
		}
		removed, err = logs.CleanByAge(logsCfg.Dir, age, now)

	case flags.Keep > 0:
		removed, err = logs.CleanByRuns(logsCfg.Dir, flags.Keep)

	default:
		if logsCfg.KeepRuns == 0 && logsCfg.KeepDays == 0 {
			fmt.Fprintln(stdout, "No retention configured. Set logs.keep_runs or logs.keep_days, or pass --all, --older or --keep.")
			return nil
		}
		removed, err = logs.Cleanup(logsCfg.Dir, logsCfg.KeepRuns, logsCfg.KeepDays)
	}
	if err != nil {
		return err
	}

	if removed == 0 {
		fmt.Fprintln(stdout, "No logs needed cleanup.")
		return nil
	}
	fmt.Fprintf(stdout, "%s Deleted %d run(s).\n", ui.SymbolSuccess, removed)
	return nil
}

func unlockLogs() error {
	logsCfg, err := logsConfig()
	if err != nil {
		return err
	}
	dir, err := logs.ExpandDir(logsCfg.Dir)
	if err != nil {
		return err
	}

	lockDir := lock.Path(dir)
	if _, err := os.Stat(lockDir); os.IsNotExist(err) {
		fmt.Fprintf(stdout, "No lock held on %s\n", dir)
		return nil
	}

	holder := lock.Holder(lockDir)
	if err := lock.ForceRelease(lockDir); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s Removed lock held by %s\n", ui.SymbolSuccess, holder)
	return nil
}
