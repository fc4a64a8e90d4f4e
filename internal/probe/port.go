// Package probe implements the single-shot network probes used by a scan:
// liveness checks, TCP connects and service identification. Every probe
// makes exactly one attempt bounded by its own timeout.
package probe

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// PortProber checks one TCP port and labels the service behind it.
type PortProber struct {
	dialer        *net.Dialer
	bannerTimeout time.Duration
}

// NewPortProber creates a prober with the given connect and banner timeouts.
func NewPortProber(connectTimeout, bannerTimeout time.Duration) *PortProber {
	return &PortProber{
		dialer:        &net.Dialer{Timeout: connectTimeout},
		bannerTimeout: bannerTimeout,
	}
}

// Probe connects to addr:port, identifies the service on the same
// connection and closes it. Any error means the port is not reported.
func (p *PortProber) Probe(ctx context.Context, addr netip.Addr, port int) (string, error) {
	target := net.JoinHostPort(addr.String(), strconv.Itoa(port))
	conn, err := p.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	return Identify(conn, port, p.bannerTimeout), nil
}
