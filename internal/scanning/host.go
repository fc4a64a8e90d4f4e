package scanning

import (
	"errors"
	"net/netip"
	"sort"
	"sync"
	"time"
)

var (
	// ErrFrozen is returned when a finished host record is modified.
	ErrFrozen = errors.New("host record is frozen")
	// ErrAlreadySet is returned when a set-once field is written twice.
	ErrAlreadySet = errors.New("field already set")
)

// LiveHost is an address that answered the liveness probe.
type LiveHost struct {
	Addr netip.Addr
	RTT  time.Duration
}

// ResponseTimeMs returns the round-trip time in milliseconds.
func (l LiveHost) ResponseTimeMs() float64 {
	return float64(l.RTT) / float64(time.Millisecond)
}

// HostRecord describes one responsive address. It is filled in by its own
// enumeration task and is read-only after Freeze.
type HostRecord struct {
	address        netip.Addr
	responseTimeMs float64
	discoveredAt   time.Time

	mu       sync.RWMutex
	hostname string
	mac      string
	vendor   string
	osGuess  string
	services map[int]string
	frozen   bool
}

// NewHostRecord creates a record for an address that answered discovery.
func NewHostRecord(live LiveHost, discoveredAt time.Time) *HostRecord {
	return &HostRecord{
		address:        live.Addr,
		responseTimeMs: live.ResponseTimeMs(),
		discoveredAt:   discoveredAt,
		services:       make(map[int]string),
	}
}

// Address returns the record's key.
func (h *HostRecord) Address() netip.Addr { return h.address }

// ResponseTimeMs is the round-trip time of the discovery probe.
func (h *HostRecord) ResponseTimeMs() float64 { return h.responseTimeMs }

// DiscoveredAt is when the record was created.
func (h *HostRecord) DiscoveredAt() time.Time { return h.discoveredAt }

// Hostname returns the reverse DNS name, or "".
func (h *HostRecord) Hostname() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hostname
}

// MAC returns the hardware address from the ARP table, or "".
func (h *HostRecord) MAC() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mac
}

// Vendor returns the OUI vendor of the MAC, or "".
func (h *HostRecord) Vendor() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.vendor
}

// OSGuess returns the inferred OS; empty until Freeze.
func (h *HostRecord) OSGuess() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.osGuess
}

// Frozen reports whether enumeration of the host has finished.
func (h *HostRecord) Frozen() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frozen
}

// SetHostname records the reverse DNS name. It may be set once.
func (h *HostRecord) SetHostname(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frozen {
		return ErrFrozen
	}
	if h.hostname != "" {
		return ErrAlreadySet
	}
	h.hostname = name
	return nil
}

// SetHardware records the MAC address and its vendor. It may be set once.
func (h *HostRecord) SetHardware(mac, vendor string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frozen {
		return ErrFrozen
	}
	if h.mac != "" {
		return ErrAlreadySet
	}
	h.mac = mac
	h.vendor = vendor
	return nil
}

// AddPort records an open port with its service label. Adding a port that
// is already present keeps the first label.
func (h *HostRecord) AddPort(port int, label string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frozen {
		return ErrFrozen
	}
	if _, ok := h.services[port]; !ok {
		h.services[port] = label
	}
	return nil
}

// Freeze computes the OS guess from the open ports and makes the record
// read-only. Calling it again has no effect.
func (h *HostRecord) Freeze() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frozen {
		return
	}
	h.osGuess = GuessOS(h.openPortsLocked())
	h.frozen = true
}

// OpenPorts returns the open ports in ascending order.
func (h *HostRecord) OpenPorts() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.openPortsLocked()
}

func (h *HostRecord) openPortsLocked() []int {
	ports := make([]int, 0, len(h.services))
	for p := range h.services {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// Services returns a copy of the port to label mapping.
func (h *HostRecord) Services() map[int]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[int]string, len(h.services))
	for p, s := range h.services {
		out[p] = s
	}
	return out
}

// Service returns the label for one port.
func (h *HostRecord) Service(port int) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.services[port]
	return s, ok
}
