package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/anstrom/netsweep/internal/config"
	"github.com/anstrom/netsweep/internal/db"
	"github.com/anstrom/netsweep/internal/engine"
	"github.com/anstrom/netsweep/internal/enrich"
	"github.com/anstrom/netsweep/internal/export"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/probe"
	"github.com/anstrom/netsweep/internal/profiles"
	"github.com/anstrom/netsweep/internal/scanning"
)

// scanFlags holds the flags shared by the profile scan commands.
type scanFlags struct {
	export          string
	ports           string
	hostConcurrency int
	portConcurrency int
	pingTimeout     time.Duration
	portTimeout     time.Duration
	noEnrich        bool
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.export, "export", "", "Export results to a file: json or csv")
	fs.StringVar(&f.ports, "ports", "", "Override the port set: quick, common or all")
	fs.IntVar(&f.hostConcurrency, "host-concurrency", 0, "Override the host concurrency cap")
	fs.IntVar(&f.portConcurrency, "port-concurrency", 0, "Override the per-host port concurrency cap")
	fs.DurationVar(&f.pingTimeout, "ping-timeout", 0, "Override the liveness probe timeout")
	fs.DurationVar(&f.portTimeout, "port-timeout", 0, "Override the TCP connect timeout")
	fs.BoolVar(&f.noEnrich, "no-enrich", false, "Skip reverse DNS and ARP lookups")
}

func (f *scanFlags) override() profiles.Override {
	return profiles.Override{
		HostConcurrency: f.hostConcurrency,
		PortConcurrency: f.portConcurrency,
		LivenessTimeout: f.pingTimeout,
		PortTimeout:     f.portTimeout,
		Ports:           f.ports,
	}
}

var profileCommands = []struct {
	profile string
	short   string
	long    string
}{
	{
		profile: "quick",
		short:   "Quick scan of the most common ports",
		long: `Discover live hosts and probe 17 well-known ports on each. High concurrency,
short timeouts.`,
	},
	{
		profile: "full",
		short:   "Scan ports 1-1024 on every live host",
		long: `Discover live hosts and probe the well-known port range 1-1024 on each,
using the same concurrency and timeouts as the quick scan.`,
	},
	{
		profile: "all",
		short:   "Scan all 65535 ports on every live host",
		long: `Discover live hosts and probe every TCP port on each. Expect this to take a
long time on busy networks.`,
	},
	{
		profile: "stealth",
		short:   "Slow, low-concurrency scan of common ports",
		long: `Discover live hosts and probe the quick port set with low concurrency and
longer timeouts to reduce the load on the network.`,
	},
}

func init() {
	for _, pc := range profileCommands {
		rootCmd.AddCommand(newProfileScanCommand(pc.profile, pc.short, pc.long))
	}
}

func newProfileScanCommand(profileName, short, long string) *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   profileName + " <network>",
		Short: short,
		Long:  long,
		Example: fmt.Sprintf(`  netsweep %[1]s 192.168.1.0/24
  netsweep %[1]s 10.0.0.0/28 --export json
  netsweep %[1]s 192.168.1.0/24 --ports common --host-concurrency 20`, profileName),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileScan(cmd, profileName, args[0], flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func runProfileScan(cmd *cobra.Command, profileName, network string, flags *scanFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profile, err := resolveProfile(cfg, profileName, flags.override())
	if err != nil {
		return err
	}

	var format export.Format
	if flags.export != "" {
		if format, err = export.ParseFormat(flags.export); err != nil {
			return err
		}
	}

	logger := logging.Default()
	checkTools(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewPrometheusMetrics()
	eng, err := buildEngine(cfg, logger, rec, !flags.noEnrich)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s with the %s profile (%d ports per host)\n\n",
		network, profile.Name, profile.PortSet.Size())

	result, err := eng.Run(ctx, engine.Request{
		Network:       network,
		Profile:       profile,
		MaxCandidates: cfg.Scanning.MaxCandidates,
	})
	if err != nil {
		return err
	}

	printReport(out, result)

	// Post-scan outputs run on a fresh context so an interrupted scan is
	// still exported and saved.
	return finishScan(context.Background(), out, cfg, result, format, rec, logger)
}

// resolveProfile applies the config file override and then the flag
// override to a built-in profile.
func resolveProfile(cfg *config.Config, name string, flagOverride profiles.Override) (profiles.Profile, error) {
	profile, err := cfg.Profile(name)
	if err != nil {
		return profiles.Profile{}, err
	}
	return profile.With(flagOverride)
}

// buildEngine wires the configured liveness backend and enrichment into a
// scan engine.
func buildEngine(cfg *config.Config, logger *logging.Logger, rec metrics.Recorder, withEnrich bool) (*engine.Engine, error) {
	pinger, err := probe.NewPinger(cfg.Scanning.LivenessMethod)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{
		Pinger:  pinger,
		Logger:  logger,
		Metrics: rec,
	}
	if withEnrich {
		opts.Enricher = enrich.New(cfg.Scanning.DNSServer, cfg.Scanning.LookupTimeout)
	}
	return engine.New(opts), nil
}

// finishScan exports, persists and dumps metrics for a finished scan. Each
// step runs even when an earlier one fails; the first failure is returned.
func finishScan(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	result *scanning.Result,
	format export.Format,
	rec *metrics.PrometheusMetrics,
	logger *logging.Logger,
) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if format != "" {
		path, err := export.ToFile(cfg.Export.Directory, format, result)
		if err != nil {
			logger.WithError(err).Error("export failed")
			keep(err)
		} else {
			fmt.Fprintf(out, "\nResults exported to %s\n", path)
		}
	}

	if cfg.Database.Enabled {
		keep(persistResult(ctx, cfg, result, logger))
	}

	if cfg.Metrics.Textfile != "" && rec != nil {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.WithError(err).Error("failed to write metrics textfile", "path", cfg.Metrics.Textfile)
			keep(err)
		}
	}
	return firstErr
}

func persistResult(ctx context.Context, cfg *config.Config, result *scanning.Result, logger *logging.Logger) error {
	return withDatabase(ctx, cfg, func(database *db.DB) error {
		if err := db.NewScanRepository(database).SaveResult(ctx, result); err != nil {
			logger.ErrorDatabase("failed to save scan result", err, "session_id", result.SessionID.String())
			return err
		}
		logger.InfoDatabase("scan result saved", "session_id", result.SessionID.String(), "hosts", result.Len())
		return nil
	})
}

// withDatabase connects, migrates, runs operation and closes the connection.
func withDatabase(ctx context.Context, cfg *config.Config, operation func(*db.DB) error) error {
	database, err := db.ConnectAndMigrate(ctx, &cfg.Database.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			logging.Warn("failed to close database connection", "error", closeErr)
		}
	}()
	return operation(database)
}

// checkTools logs which auxiliary programs are unavailable. Missing tools
// only degrade the fields they provide.
func checkTools(logger *logging.Logger) {
	missing := probe.MissingTools()
	if len(missing) == 0 {
		return
	}
	logger.Warn("some auxiliary tools are not installed; related results may be empty",
		"missing", missing)
}
