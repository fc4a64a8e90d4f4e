// Package enrich resolves the optional identity of a live host: its reverse
// DNS name and, on the local segment, its MAC address and vendor. Every
// lookup is best effort and reports why it produced nothing.
package enrich

import (
	"context"
	"errors"
	"net/netip"
	"time"
)

var (
	// ErrNotFound means the lookup completed but had no answer.
	ErrNotFound = errors.New("no entry found")
	// ErrLookupFailed means the lookup could not be completed.
	ErrLookupFailed = errors.New("lookup failed")
	// ErrToolMissing means a helper program is not installed.
	ErrToolMissing = errors.New("required tool not available")
)

// Enricher bounds each lookup by a timeout.
type Enricher struct {
	resolver *Resolver
	arp      *ARPTable
	timeout  time.Duration
}

// DefaultTimeout bounds a lookup when none is configured.
const DefaultTimeout = 2 * time.Second

// New creates an enricher. dnsServer may be empty.
func New(dnsServer string, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Enricher{
		resolver: NewResolver(dnsServer),
		arp:      NewARPTable(),
		timeout:  timeout,
	}
}

// Hostname returns the reverse DNS name of addr.
func (e *Enricher) Hostname(ctx context.Context, addr netip.Addr) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.resolver.LookupPTR(ctx, addr)
}

// Hardware returns the MAC address of addr and its vendor.
func (e *Enricher) Hardware(ctx context.Context, addr netip.Addr) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	mac, err := e.arp.Lookup(ctx, addr)
	if err != nil {
		return "", "", err
	}
	return mac, LookupVendor(mac), nil
}
