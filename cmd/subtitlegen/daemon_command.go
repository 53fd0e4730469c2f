package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subtitlegen/internal/logging"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var healthcheck bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler loop, dispatching every active job until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if healthcheck {
				return runHealthcheck(cmd, ctx)
			}
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
	cmd.Flags().BoolVar(&healthcheck, "healthcheck", false, "report readiness of every scheduler dependency and exit")
	return cmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := buildStack(cfg, store)
	if err != nil {
		return err
	}

	if err := st.sched.Start(signalCtx); err != nil {
		return err
	}
	st.logger.Info("subtitlegen daemon started",
		logging.Int("max_concurrent_jobs", cfg.Scheduling.MaxConcurrentJobs))

	retention := time.Duration(cfg.Cleanup.RetentionS) * time.Second
	interval := time.Duration(cfg.Cleanup.SweepIntervalS) * time.Second
	go st.reaper.RunPeriodic(signalCtx, st.store, retention, interval)
	st.logger.Info("periodic cleanup sweep started",
		logging.Int("retention_s", cfg.Cleanup.RetentionS),
		logging.Int("sweep_interval_s", cfg.Cleanup.SweepIntervalS))

	<-signalCtx.Done()
	st.logger.Info("subtitlegen daemon shutting down")
	st.sched.Stop()
	return nil
}

// runHealthcheck reports readiness of every scheduler dependency and
// exits non-zero if any check fails, without starting the dispatch loop
// or the cleanup sweep.
func runHealthcheck(cmd *cobra.Command, ctx *commandContext) error {
	cfg, store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := buildStack(cfg, store)
	if err != nil {
		return err
	}

	health := st.sched.HealthCheck(cmd.Context())
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	allReady := true
	for _, name := range names {
		check := health[name]
		if !check.Ready {
			allReady = false
		}
		rows = append(rows, []string{name, yesNo(check.Ready), check.Detail})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"COMPONENT", "READY", "DETAIL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	if !allReady {
		return fmt.Errorf("one or more health checks failed")
	}
	return nil
}
