package scanning

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
)

// PortProber performs one TCP probe. A non-nil error means the port is not
// open; it never aborts enumeration.
type PortProber interface {
	Probe(ctx context.Context, addr netip.Addr, port int) (string, error)
}

// Enricher resolves optional host identity. Errors mean the field stays
// empty.
type Enricher interface {
	Hostname(ctx context.Context, addr netip.Addr) (string, error)
	Hardware(ctx context.Context, addr netip.Addr) (mac, vendor string, err error)
}

// Enumerator probes the ports of live hosts.
type Enumerator struct {
	prober   PortProber
	enricher Enricher
	logger   *logging.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewEnumerator creates an enumeration stage. A nil enricher skips hostname
// and hardware lookups; a nil recorder discards metrics.
func NewEnumerator(prober PortProber, enricher Enricher, logger *logging.Logger, rec metrics.Recorder) *Enumerator {
	if logger == nil {
		logger = logging.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Enumerator{
		prober:   prober,
		enricher: enricher,
		logger:   logger.WithComponent("enumeration"),
		metrics:  rec,
		now:      time.Now,
	}
}

// Run enumerates every live host into result. Hosts run concurrently under a
// limiter of half the profile's host cap; each host gets its own port
// limiter. Once ctx is done or the session is stopped no new host or port
// task is started, but running ones finish under their own timeouts.
func (e *Enumerator) Run(ctx context.Context, sess *Session, live []LiveHost, result *Result) {
	hostLimiter := NewLimiter("enumeration", sess.Profile.EnumerationHosts())
	ports := sess.Profile.PortSet.Ports()

	var wg sync.WaitGroup
	for _, lh := range live {
		if !sess.Active() {
			break
		}
		if err := hostLimiter.Acquire(ctx); err != nil {
			break
		}
		e.metrics.LimiterInFlight(hostLimiter.Name(), hostLimiter.InFlight())

		wg.Add(1)
		go func(lh LiveHost) {
			defer wg.Done()
			defer hostLimiter.Release()

			record := e.enumerateHost(ctx, sess, lh, ports)
			if !result.Add(record) {
				e.logger.Warn("duplicate host record dropped", "host", lh.Addr.String())
			}
		}(lh)
	}
	wg.Wait()
	e.metrics.LimiterInFlight(hostLimiter.Name(), 0)
}

func (e *Enumerator) enumerateHost(ctx context.Context, sess *Session, lh LiveHost, ports []int) *HostRecord {
	record := NewHostRecord(lh, e.now())
	probeCtx := context.WithoutCancel(ctx)
	log := e.logger.WithHost(lh.Addr.String())

	if e.enricher != nil {
		e.enrich(probeCtx, record, log)
	}

	portLimiter := NewLimiter("ports", sess.Profile.PortConcurrency)
	var (
		mu    sync.Mutex
		found = make(map[int]string)
		wg    sync.WaitGroup
	)
	for _, port := range ports {
		if !sess.Active() {
			break
		}
		if err := portLimiter.Acquire(ctx); err != nil {
			break
		}

		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			defer portLimiter.Release()

			sess.recordPortProbed()
			label, err := e.prober.Probe(probeCtx, lh.Addr, port)
			if err != nil {
				e.metrics.PortProbe(metrics.StateClosed)
				return
			}
			e.metrics.PortProbe(metrics.StateOpen)
			sess.recordOpenPort()

			mu.Lock()
			found[port] = label
			mu.Unlock()
		}(port)
	}
	wg.Wait()

	for port, label := range found {
		// the record is not frozen yet, so AddPort cannot fail
		_ = record.AddPort(port, label)
	}
	record.Freeze()

	open := record.OpenPorts()
	e.metrics.HostEnumerated(record.OSGuess(), len(open))
	log.InfoEnumeration("host enumerated", lh.Addr.String(),
		"open_ports", len(open),
		"os_guess", record.OSGuess(),
		"peak_port_probes", portLimiter.Peak())

	return record
}

func (e *Enumerator) enrich(ctx context.Context, record *HostRecord, log *logging.Logger) {
	addr := record.Address()

	if name, err := e.enricher.Hostname(ctx, addr); err != nil {
		log.DebugProbe("reverse lookup failed", addr.String(), err)
	} else {
		_ = record.SetHostname(name)
	}

	if mac, vendor, err := e.enricher.Hardware(ctx, addr); err != nil {
		log.DebugProbe("hardware lookup failed", addr.String(), err)
	} else {
		_ = record.SetHardware(mac, vendor)
	}
}
