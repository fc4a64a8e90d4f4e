package scanning

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/netsweep/internal/profiles"
)

// Session holds the per-invocation state of one scan. Counters are safe for
// concurrent use by probe tasks.
type Session struct {
	ID        uuid.UUID
	Network   string
	Profile   profiles.Profile
	StartedAt time.Time

	addressesProbed atomic.Int64
	liveHosts       atomic.Int64
	portsProbed     atomic.Int64
	openPorts       atomic.Int64
	stopped         atomic.Bool
}

// NewSession starts a session for a network and profile.
func NewSession(network string, profile profiles.Profile) *Session {
	return &Session{
		ID:        uuid.New(),
		Network:   network,
		Profile:   profile,
		StartedAt: time.Now(),
	}
}

// Active reports whether new probe tasks may still be issued.
func (s *Session) Active() bool { return !s.stopped.Load() }

// Stop marks the session inactive. Probes already running are unaffected.
func (s *Session) Stop() { s.stopped.Store(true) }

// RecordAddressProbed counts one liveness attempt.
func (s *Session) RecordAddressProbed() { s.addressesProbed.Add(1) }

// RecordLiveHost counts one responsive address.
func (s *Session) RecordLiveHost() { s.liveHosts.Add(1) }

func (s *Session) recordPortProbed() { s.portsProbed.Add(1) }
func (s *Session) recordOpenPort()   { s.openPorts.Add(1) }

// Stats is a point-in-time copy of the session counters.
type Stats struct {
	AddressesProbed int64
	LiveHosts       int64
	PortsProbed     int64
	OpenPorts       int64
}

// Stats returns the current counter values.
func (s *Session) Stats() Stats {
	return Stats{
		AddressesProbed: s.addressesProbed.Load(),
		LiveHosts:       s.liveHosts.Load(),
		PortsProbed:     s.portsProbed.Load(),
		OpenPorts:       s.openPorts.Load(),
	}
}
