package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/netsweep/internal/config"
	"github.com/anstrom/netsweep/internal/discovery"
	"github.com/anstrom/netsweep/internal/engine"
	"github.com/anstrom/netsweep/internal/export"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/profiles"
	"github.com/anstrom/netsweep/internal/scheduler"
)

var watchFlags struct {
	scanFlags
	profile  string
	schedule string
	noRunNow bool
}

var watchCmd = &cobra.Command{
	Use:   "watch <network>",
	Short: "Rescan a network on a schedule",
	Long: `Run a profile scan of a network repeatedly on a cron schedule until
interrupted. Every run is logged and, when configured, saved to the
database, exported and written to the metrics textfile. A run never starts
while the previous one is still going.`,
	Example: `  netsweep watch 192.168.1.0/24
  netsweep watch 10.0.0.0/24 --profile full --schedule "0 * * * *"
  netsweep watch 192.168.1.0/24 --schedule "@every 5m" --export json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.register(watchCmd.Flags())
	watchCmd.Flags().StringVar(&watchFlags.profile, "profile", "quick", "Scan profile for every run")
	watchCmd.Flags().StringVar(&watchFlags.schedule, "schedule", "@every 15m", "Cron expression or descriptor")
	watchCmd.Flags().BoolVar(&watchFlags.noRunNow, "no-run-now", false, "Wait for the first scheduled time instead of scanning immediately")
}

func runWatch(cmd *cobra.Command, network string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profile, err := resolveProfile(cfg, watchFlags.profile, watchFlags.override())
	if err != nil {
		return err
	}
	if err := scheduler.ValidateSchedule(watchFlags.schedule); err != nil {
		return err
	}
	if _, _, err := discovery.Targets(network, 1); err != nil {
		return err
	}

	var format export.Format
	if watchFlags.export != "" {
		if format, err = export.ParseFormat(watchFlags.export); err != nil {
			return err
		}
	}

	logger := logging.Default().WithComponent("watch")
	checkTools(logger)

	rec := metrics.NewPrometheusMetrics()
	eng, err := buildEngine(cfg, logger, rec, !watchFlags.noEnrich)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger)
	jobName := fmt.Sprintf("%s %s", profile.Name, network)
	id, err := sched.Add(jobName, watchFlags.schedule, watchRun(eng, cfg, network, profile, format, rec, logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s with the %s profile on %q. Press Ctrl+C to stop.\n",
		network, profile.Name, watchFlags.schedule)

	if !watchFlags.noRunNow {
		go func() {
			if err := sched.RunNow(id); err != nil {
				logger.WithError(err).Error("initial run failed")
			}
		}()
	}

	<-ctx.Done()
	sched.Stop()

	for _, job := range sched.Jobs() {
		logger.Info("watch stopped", "job", job.Name, "runs", job.Runs, "skipped", job.Skipped)
		if job.LastErr != nil {
			logging.Error("last watch run failed", "job", job.Name, "error", job.LastErr)
		}
	}
	return nil
}

// watchRun returns the job body for one scheduled scan.
func watchRun(
	eng *engine.Engine,
	cfg *config.Config,
	network string,
	profile profiles.Profile,
	format export.Format,
	rec *metrics.PrometheusMetrics,
	logger *logging.Logger,
) scheduler.RunFunc {
	return func(ctx context.Context) error {
		result, err := eng.Run(ctx, engine.Request{
			Network:       network,
			Profile:       profile,
			MaxCandidates: cfg.Scanning.MaxCandidates,
		})
		if err != nil {
			return err
		}

		logger.WithSession(result.SessionID.String()).Info("watch run finished",
			"live_hosts", len(result.Live),
			"open_ports", result.OpenPortCount(),
			"interrupted", result.Interrupted)

		return finishScan(context.Background(), os.Stdout, cfg, result, format, rec, logger)
	}
}
