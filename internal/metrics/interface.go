// Package metrics records scan telemetry with the Prometheus client library.
package metrics

import "time"

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/anstrom/netsweep/internal/metrics Recorder

// Recorder receives scan events. Implementations must be safe for concurrent
// use by probe tasks.
type Recorder interface {
	// ScanStarted marks the beginning of a scan with the given profile.
	ScanStarted(profile string)

	// ScanFinished records the outcome and wall time of a scan.
	ScanFinished(profile, status string, elapsed time.Duration)

	// LivenessProbe counts one liveness attempt by outcome (alive or absent).
	LivenessProbe(method, outcome string, elapsed time.Duration)

	// PortProbe counts one port probe by state (open or closed).
	PortProbe(state string)

	// HostEnumerated records the number of open ports found on one host.
	HostEnumerated(osGuess string, openPorts int)

	// LimiterInFlight reports the current holder count of a named limiter.
	LimiterInFlight(limiter string, n int)
}

// Outcome and status labels.
const (
	OutcomeAlive  = "alive"
	OutcomeAbsent = "absent"

	StateOpen   = "open"
	StateClosed = "closed"

	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// Nop discards every event.
type Nop struct{}

func (Nop) ScanStarted(string) {}
func (Nop) ScanFinished(string, string, time.Duration) {}
func (Nop) LivenessProbe(string, string, time.Duration) {}
func (Nop) PortProbe(string) {}
func (Nop) HostEnumerated(string, int) {}
func (Nop) LimiterInFlight(string, int) {}

var (
	_ Recorder = Nop{}
	_ Recorder = (*PrometheusMetrics)(nil)
)
