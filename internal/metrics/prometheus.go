package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all netsweep metrics
	namespace = "netsweep"

	// Subsystems
	subsystemScan        = "scan"
	subsystemDiscovery   = "discovery"
	subsystemEnumeration = "enumeration"

	textfileDirPerm = 0755
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	activeScans  prometheus.Gauge
	lastScanTime prometheus.Gauge

	// Discovery metrics
	livenessProbes   *prometheus.CounterVec
	livenessDuration *prometheus.HistogramVec

	// Enumeration metrics
	portProbes      *prometheus.CounterVec
	hostsEnumerated *prometheus.CounterVec
	openPorts       prometheus.Histogram
	limiterInFlight *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a metrics instance with its own registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
	}

	pm.initScanMetrics()
	pm.initDiscoveryMetrics()
	pm.initEnumerationMetrics()
	pm.registerMetrics()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initScanMetrics initializes scan-level metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scans by profile and status",
		},
		[]string{"profile", "status"},
	)

	pm.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of scans in seconds",
			Buckets:   []float64{1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 1800.0},
		},
		[]string{"profile"},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently running scans",
		},
	)

	pm.lastScanTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last finished scan",
		},
	)
}

// initDiscoveryMetrics initializes liveness probe metrics
func (pm *PrometheusMetrics) initDiscoveryMetrics() {
	pm.livenessProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "probes_total",
			Help:      "Liveness probes by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	pm.livenessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "probe_duration_seconds",
			Help:      "Duration of liveness probes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method"},
	)
}

// initEnumerationMetrics initializes port probe metrics
func (pm *PrometheusMetrics) initEnumerationMetrics() {
	pm.portProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemEnumeration,
			Name:      "port_probes_total",
			Help:      "Port probes by resulting state",
		},
		[]string{"state"},
	)

	pm.hostsEnumerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemEnumeration,
			Name:      "hosts_total",
			Help:      "Enumerated hosts by inferred OS",
		},
		[]string{"os_guess"},
	)

	pm.openPorts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemEnumeration,
			Name:      "open_ports_per_host",
			Help:      "Number of open ports found per host",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	pm.limiterInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "limiter_in_flight",
			Help:      "Current holders of each concurrency limiter",
		},
		[]string{"limiter"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.activeScans,
		pm.lastScanTime,
		pm.livenessProbes,
		pm.livenessDuration,
		pm.portProbes,
		pm.hostsEnumerated,
		pm.openPorts,
		pm.limiterInFlight,
	)
}

// GetRegistry returns the underlying registry.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// ScanStarted implements Recorder.
func (pm *PrometheusMetrics) ScanStarted(string) {
	pm.activeScans.Inc()
}

// ScanFinished implements Recorder.
func (pm *PrometheusMetrics) ScanFinished(profile, status string, elapsed time.Duration) {
	pm.activeScans.Dec()
	pm.scansTotal.WithLabelValues(profile, status).Inc()
	pm.scanDuration.WithLabelValues(profile).Observe(elapsed.Seconds())
	pm.lastScanTime.SetToCurrentTime()
}

// LivenessProbe implements Recorder.
func (pm *PrometheusMetrics) LivenessProbe(method, outcome string, elapsed time.Duration) {
	pm.livenessProbes.WithLabelValues(method, outcome).Inc()
	pm.livenessDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// PortProbe implements Recorder.
func (pm *PrometheusMetrics) PortProbe(state string) {
	pm.portProbes.WithLabelValues(state).Inc()
}

// HostEnumerated implements Recorder.
func (pm *PrometheusMetrics) HostEnumerated(osGuess string, openPorts int) {
	pm.hostsEnumerated.WithLabelValues(osGuess).Inc()
	pm.openPorts.Observe(float64(openPorts))
}

// LimiterInFlight implements Recorder.
func (pm *PrometheusMetrics) LimiterInFlight(limiter string, n int) {
	pm.limiterInFlight.WithLabelValues(limiter).Set(float64(n))
}

// WriteTextfile dumps the registry in the text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), textfileDirPerm); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
