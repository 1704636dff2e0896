package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cmon-dev/cmon/internal/errors"
	"github.com/cmon-dev/cmon/internal/logger"
	"github.com/cmon-dev/cmon/internal/monitor"
	"github.com/cmon-dev/cmon/internal/ui"
)

var checkTargets string

// checkCmd polls each device once without writing logs
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll every device once and print a status table",
	Long: `Poll every configured device once, retrying like a normal run, and print
CPU, memory and threshold levels. Nothing is written to the logs directory.

Exits non-zero when any device can't be reached or rejects its API key.

Examples:
  cmon check
  cmon check --targets fortigate_config.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Check(ctx, checkTargets)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkTargets, "targets", "", "legacy targets file with 'IP, API_KEY, NAME' lines")
	rootCmd.AddCommand(checkCmd)
}

// checkCollector keeps the last outcome per device.
type checkCollector struct {
	monitor.NopObserver

	mu      sync.Mutex
	reports map[string]monitor.CycleReport
	gaps    map[string]monitor.GapReport
	stopped map[string]monitor.SessionResult
}

func newCheckCollector() *checkCollector {
	return &checkCollector{
		reports: make(map[string]monitor.CycleReport),
		gaps:    make(map[string]monitor.GapReport),
		stopped: make(map[string]monitor.SessionResult),
	}
}

func (c *checkCollector) CycleCompleted(r monitor.CycleReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[r.Target.Name] = r
}

func (c *checkCollector) CycleFailed(g monitor.GapReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gaps[g.Target.Name] = g
}

func (c *checkCollector) SessionStopped(r monitor.SessionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped[r.Target.Name] = r
}

// rows builds one table row per target in config order.
func (c *checkCollector) rows(targets []monitor.DeviceTarget) []ui.CheckRow {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]ui.CheckRow, 0, len(targets))
	for _, t := range targets {
		row := ui.CheckRow{Device: t.Name, Host: t.Host}
		if r, ok := c.reports[t.Name]; ok && r.Snapshot != nil {
			row.CPU = r.Snapshot.CPUPercent
			row.Memory = r.Snapshot.MemoryPercent
			row.State = r.State
			row.Processes = r.Snapshot.ProcessCount
			row.Suspect = r.Snapshot.SuspectCount()
		} else if s, ok := c.stopped[t.Name]; ok && s.Reason == monitor.ReasonAuthFailure {
			row.Err = fmt.Sprintf("API key rejected: %v", s.Err)
		} else if g, ok := c.gaps[t.Name]; ok {
			row.Err = fmt.Sprintf("%s after %d attempt(s): %v", g.Kind, g.Attempts, g.Err)
		} else {
			row.Err = "no response"
		}
		rows = append(rows, row)
	}
	return rows
}

// Check polls every device once and prints the result table.
func Check(ctx context.Context, targetsFile string) error {
	cfg, err := loadConfig(PollFlags{Targets: targetsFile})
	if err != nil {
		return err
	}

	pool := monitor.NewPool(cfg.ClientOptions())
	defer pool.Close()

	runCfg := cfg.RunConfig()
	runCfg.MaxCycles = 1
	runCfg.MaxDuration = 0

	collector := newCheckCollector()
	orch := monitor.NewOrchestrator(
		cfg.Targets(),
		monitor.NewAPIFetcher(pool),
		monitor.DiscardFactory,
		runCfg,
		monitor.WithLogger(logger.NewEnvLogger("check")),
		monitor.WithObserver(collector),
	)

	_, runErr := orch.Run(ctx)
	if runErr != nil && !errors.IsCode(runErr, errors.ErrAuth) {
		return runErr
	}

	rows := collector.rows(orch.Targets())
	fmt.Fprintln(stdout, ui.RenderCheckTable(rows, cfg.Policy()))

	for _, r := range rows {
		if r.Err != "" {
			return errors.NewExitError(1)
		}
	}
	return nil
}
