// Package engine runs a complete scan: it expands the target network, runs
// the discovery stage and then the enumeration stage, and assembles the
// Result. It never probes anything itself.
package engine

import (
	"context"
	"time"

	"github.com/anstrom/netsweep/internal/discovery"
	scanerrors "github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/probe"
	"github.com/anstrom/netsweep/internal/profiles"
	"github.com/anstrom/netsweep/internal/scanning"
)

// Request describes one scan.
type Request struct {
	Network       string
	Profile       profiles.Profile
	MaxCandidates int
}

// Options wires the probe backends into an engine. Pinger is required. A nil
// Prober is built from each request's profile timeouts; a nil Enricher skips
// hostname and hardware lookups.
type Options struct {
	Pinger   discovery.Pinger
	Prober   scanning.PortProber
	Enricher scanning.Enricher
	Logger   *logging.Logger
	Metrics  metrics.Recorder
}

// Engine sequences the scan stages.
type Engine struct {
	opts    Options
	logger  *logging.Logger
	metrics metrics.Recorder
	fdLimit func() (uint64, error)
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &Engine{
		opts:    opts,
		logger:  opts.Logger.WithComponent("engine"),
		metrics: opts.Metrics,
		fdLimit: descriptorLimit,
	}
}

// Run performs the scan described by req. A malformed network or invalid
// profile fails before any probe is sent and yields no Result. When ctx is
// cancelled the scan stops issuing probes, waits for the running ones and
// returns the partial Result with Interrupted set and a nil error.
func (e *Engine) Run(ctx context.Context, req Request) (*scanning.Result, error) {
	profile := req.Profile
	if err := profile.Validate(); err != nil {
		return nil, scanerrors.WrapConfigError(scanerrors.CodeValidation, "invalid scan profile", err)
	}

	targets, truncated, err := discovery.Targets(req.Network, req.MaxCandidates)
	if err != nil {
		e.metrics.ScanFinished(profile.Name, metrics.StatusFailed, 0)
		return nil, err
	}

	network, err := discovery.Normalize(req.Network)
	if err != nil {
		e.metrics.ScanFinished(profile.Name, metrics.StatusFailed, 0)
		return nil, err
	}

	sess := scanning.NewSession(network, profile)
	log := e.logger.WithSession(sess.ID.String())
	if truncated {
		log.Warn("network larger than candidate limit, scanning the first addresses only",
			"network", network, "limit", len(targets))
	}
	e.checkDescriptorBudget(log, profile)

	stop := context.AfterFunc(ctx, sess.Stop)
	defer stop()

	e.metrics.ScanStarted(profile.Name)
	log.Info("scan started",
		"network", network,
		"profile", profile.Name,
		"candidates", len(targets),
		"ports_per_host", profile.PortSet.Size())

	finder := discovery.NewEngine(e.opts.Pinger, log, e.metrics)
	live := finder.Discover(ctx, sess, targets)

	result := scanning.NewResult(sess)
	result.Live = live

	prober := e.opts.Prober
	if prober == nil {
		prober = probe.NewPortProber(profile.PortTimeout, profile.BannerTimeout)
	}
	scanning.NewEnumerator(prober, e.opts.Enricher, log, e.metrics).Run(ctx, sess, live, result)

	result.Duration = time.Since(sess.StartedAt)
	result.Stats = sess.Stats()
	result.Interrupted = !sess.Active() || ctx.Err() != nil

	status := metrics.StatusCompleted
	if result.Interrupted {
		status = metrics.StatusInterrupted
	}
	e.metrics.ScanFinished(profile.Name, status, result.Duration)

	log.Info("scan finished",
		"status", status,
		"live_hosts", len(live),
		"records", result.Len(),
		"open_ports", result.Stats.OpenPorts,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (e *Engine) checkDescriptorBudget(log *logging.Logger, profile profiles.Profile) {
	limit, err := e.fdLimit()
	if err != nil {
		log.Debug("could not read descriptor limit", "error", err)
		return
	}
	peak := uint64(profile.PeakPortProbes())
	if peak > limit {
		log.Warn("worst-case concurrent port probes exceed the open file limit",
			"peak_port_probes", peak,
			"nofile_soft_limit", limit,
			"profile", profile.Name)
	}
}
