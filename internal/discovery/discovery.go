// Package discovery finds the responsive addresses of an IPv4 network. It
// expands a CIDR into candidate host addresses and fans liveness probes out
// under a host-level limiter.
package discovery

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"

	scanerrors "github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/probe"
	"github.com/anstrom/netsweep/internal/scanning"
)

// DefaultMaxCandidates caps the number of addresses probed per scan.
const DefaultMaxCandidates = 1000

const ipv4Bits = 32

var errNotIPv4 = errors.New("only IPv4 networks are supported")

// Targets expands network into candidate addresses in ascending order. The
// network and broadcast addresses are excluded except for /31 and /32, which
// yield every address. A bare address is treated as /32. At most max
// addresses are returned (DefaultMaxCandidates when max < 1); truncated
// reports whether the network held more.
func Targets(network string, max int) (targets []netip.Addr, truncated bool, err error) {
	prefix, err := parseNetwork(network)
	if err != nil {
		return nil, false, scanerrors.ErrInvalidTarget(network, err)
	}
	if max < 1 {
		max = DefaultMaxCandidates
	}

	bits := prefix.Bits()
	total := uint64(1) << (ipv4Bits - bits)
	first, last := uint64(0), total-1
	if bits <= ipv4Bits-2 {
		first, last = 1, total-2
	}

	hostCount := last - first + 1
	n := hostCount
	if n > uint64(max) {
		n = uint64(max)
		truncated = true
	}

	targets = make([]netip.Addr, 0, n)
	addr := prefix.Addr()
	for i := uint64(0); i < first; i++ {
		addr = addr.Next()
	}
	for i := uint64(0); i < n; i++ {
		targets = append(targets, addr)
		addr = addr.Next()
	}
	return targets, truncated, nil
}

// Normalize returns the canonical CIDR form of network with host bits
// cleared, e.g. "192.168.1.10/24" becomes "192.168.1.0/24" and a bare
// address becomes a /32.
func Normalize(network string) (string, error) {
	prefix, err := parseNetwork(network)
	if err != nil {
		return "", scanerrors.ErrInvalidTarget(network, err)
	}
	return prefix.String(), nil
}

func parseNetwork(network string) (netip.Prefix, error) {
	network = strings.TrimSpace(network)
	var (
		prefix netip.Prefix
		err    error
	)
	if strings.Contains(network, "/") {
		prefix, err = netip.ParsePrefix(network)
	} else {
		var addr netip.Addr
		addr, err = netip.ParseAddr(network)
		if err == nil {
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
	}
	if err != nil {
		return netip.Prefix{}, err
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, errNotIPv4
	}
	return prefix.Masked(), nil
}

// Pinger is a liveness backend.
type Pinger interface {
	Name() string
	Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error)
}

// Engine runs the discovery stage.
type Engine struct {
	pinger  Pinger
	logger  *logging.Logger
	metrics metrics.Recorder

	toolWarning sync.Once
}

// NewEngine creates a discovery engine around a liveness backend.
func NewEngine(pinger Pinger, logger *logging.Logger, rec metrics.Recorder) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Engine{
		pinger:  pinger,
		logger:  logger.WithComponent("discovery"),
		metrics: rec,
	}
}

// Discover probes every candidate once and returns the live ones sorted by
// address, each exactly once. Once ctx is done or the session is stopped no
// further probes are started; probes already running finish under the
// profile's liveness timeout.
func (e *Engine) Discover(ctx context.Context, sess *scanning.Session, candidates []netip.Addr) []scanning.LiveHost {
	limiter := scanning.NewLimiter("discovery", sess.Profile.HostConcurrency)
	probeCtx := context.WithoutCancel(ctx)
	timeout := sess.Profile.LivenessTimeout
	method := e.pinger.Name()

	var (
		mu   sync.Mutex
		live []scanning.LiveHost
		wg   sync.WaitGroup
		seen = make(map[netip.Addr]struct{}, len(candidates))
	)

	for _, addr := range candidates {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		if !sess.Active() {
			break
		}
		if err := limiter.Acquire(ctx); err != nil {
			break
		}
		e.metrics.LimiterInFlight(limiter.Name(), limiter.InFlight())

		wg.Add(1)
		go func(addr netip.Addr) {
			defer wg.Done()
			defer limiter.Release()

			sess.RecordAddressProbed()
			start := time.Now()
			rtt, err := e.pinger.Ping(probeCtx, addr, timeout)
			elapsed := time.Since(start)
			if err != nil {
				e.metrics.LivenessProbe(method, metrics.OutcomeAbsent, elapsed)
				e.logAbsent(addr, err)
				return
			}
			e.metrics.LivenessProbe(method, metrics.OutcomeAlive, elapsed)
			sess.RecordLiveHost()

			mu.Lock()
			live = append(live, scanning.LiveHost{Addr: addr, RTT: rtt})
			mu.Unlock()
		}(addr)
	}
	wg.Wait()
	e.metrics.LimiterInFlight(limiter.Name(), 0)

	sort.Slice(live, func(i, j int) bool { return live[i].Addr.Less(live[j].Addr) })

	e.logger.InfoDiscovery("discovery finished", sess.Network,
		"candidates", len(candidates),
		"live", len(live),
		"method", method,
		"peak_probes", limiter.Peak())
	return live
}

func (e *Engine) logAbsent(addr netip.Addr, err error) {
	switch {
	case errors.Is(err, probe.ErrToolMissing):
		e.toolWarning.Do(func() {
			e.logger.WithError(scanerrors.WrapScanErrorWithTarget(scanerrors.CodeToolMissing,
				"liveness tool missing", addr.String(), err)).
				Warn("liveness backend unavailable, no host will be found", "method", e.pinger.Name())
		})
	case errors.Is(err, probe.ErrNoReply):
		e.logger.DebugProbe("no liveness reply", addr.String(), err)
	default:
		e.logger.DebugProbe("liveness probe failed", addr.String(),
			scanerrors.WrapScanErrorWithTarget(scanerrors.CodeDiscoveryFailed,
				"liveness probe error", addr.String(), err))
	}
}
