package scanning

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one scan: at most one frozen HostRecord per
// responsive address, plus the session counters.
type Result struct {
	SessionID   uuid.UUID
	Network     string
	Profile     string
	StartedAt   time.Time
	Duration    time.Duration
	Interrupted bool
	Stats       Stats

	// Live lists every address that answered discovery, ascending.
	Live []LiveHost

	mu    sync.RWMutex
	hosts map[netip.Addr]*HostRecord
}

// NewResult creates an empty result for a session.
func NewResult(sess *Session) *Result {
	return &Result{
		SessionID: sess.ID,
		Network:   sess.Network,
		Profile:   sess.Profile.Name,
		StartedAt: sess.StartedAt,
		hosts:     make(map[netip.Addr]*HostRecord),
	}
}

// Add freezes h and stores it. A second record for the same address is
// dropped and reported as false.
func (r *Result) Add(h *HostRecord) bool {
	h.Freeze()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hosts[h.Address()]; exists {
		return false
	}
	r.hosts[h.Address()] = h
	return true
}

// Host returns the record for one address.
func (r *Result) Host(addr netip.Addr) (*HostRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hosts[addr]
	return h, ok
}

// Len returns the number of host records.
func (r *Result) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hosts)
}

// Hosts returns the records sorted by numeric address.
func (r *Result) Hosts() []*HostRecord {
	r.mu.RLock()
	out := make([]*HostRecord, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Address().Less(out[j].Address())
	})
	return out
}

// OpenPortCount sums open ports across all hosts.
func (r *Result) OpenPortCount() int {
	total := 0
	for _, h := range r.Hosts() {
		total += len(h.OpenPorts())
	}
	return total
}

// AddressesPerSecond is the discovery throughput of the scan.
func (r *Result) AddressesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Stats.AddressesProbed) / r.Duration.Seconds()
}
