package enrich

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

const resolvConf = "/etc/resolv.conf"

// Resolver performs reverse (PTR) lookups. With a server configured, or one
// found in resolv.conf, it queries that server directly; otherwise it uses
// the system resolver.
type Resolver struct {
	server   string
	client   *dns.Client
	fallback *net.Resolver
}

// NewResolver creates a PTR resolver. An empty server means "use the first
// nameserver from /etc/resolv.conf".
func NewResolver(server string) *Resolver {
	if server == "" {
		if cfg, err := dns.ClientConfigFromFile(resolvConf); err == nil && len(cfg.Servers) > 0 {
			server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
		}
	}
	return &Resolver{
		server:   server,
		client:   &dns.Client{Net: "udp"},
		fallback: net.DefaultResolver,
	}
}

// Server returns the nameserver queried, or "" for the system resolver.
func (r *Resolver) Server() string { return r.server }

// LookupPTR returns the first PTR name of addr without the trailing dot.
func (r *Resolver) LookupPTR(ctx context.Context, addr netip.Addr) (string, error) {
	if r.server == "" {
		names, err := r.fallback.LookupAddr(ctx, addr.String())
		if err != nil || len(names) == 0 {
			return "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return strings.TrimSuffix(names[0], "."), nil
	}

	arpa, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("%w: %s", ErrNotFound, dns.RcodeToString[in.Rcode])
	}
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", ErrNotFound
}
