// Package metrics provides Prometheus instrumentation for the connection
// multiplexer and the cooperative session processes (SPEC_FULL.md DOMAIN
// STACK), grounded in the teacher's prometheus.Registerer-based Metrics
// type (pkg/metadata/lock/metrics.go): every method is nil-safe so callers
// that never wired a registry pay no cost.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Field label values for PersistApplied.
const (
	FieldDeviceStatus     = "device_status"
	FieldDeviceDescriptor = "device_descriptor"
)

// Metrics holds every counter/gauge/histogram the daemon exposes.
type Metrics struct {
	framesSent      prometheus.Counter
	framesReceived  prometheus.Counter
	pendingRequests prometheus.Gauge
	scanDuration    prometheus.Histogram
	persistApplied  *prometheus.CounterVec
	fwuAdvisories   prometheus.Counter
	fwuCancellation prometheus.Counter

	registered bool
}

// New creates and, if registry is non-nil, registers the daemon's metrics.
// Passing a nil registry returns a usable-but-unregistered Metrics, handy
// for tests that want real counters without a Prometheus endpoint.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "connection",
			Name:      "frames_sent_total",
			Help:      "Total number of outbound request frames written to the gateway session.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "connection",
			Name:      "frames_received_total",
			Help:      "Total number of inbound frames (results and server messages) read from the gateway session.",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "connection",
			Name:      "pending_requests",
			Help:      "Number of outbound requests awaiting a delivery result.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "nodescan",
			Name:      "pass_duration_seconds",
			Help:      "Time taken to interrogate every known node in one NodeScan pass.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		persistApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "persistor",
			Name:      "events_applied_total",
			Help:      "Total number of inbound IOBs the persistor applied to the node store, by field.",
		}, []string{"field"}),
		fwuAdvisories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "fwu",
			Name:      "advisories_total",
			Help:      "Total number of firmware-update advisories logged.",
		}),
		fwuCancellation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ptnet_mgr",
			Subsystem: "fwu",
			Name:      "cancellations_total",
			Help:      "Total number of firmware-update cancellation commands sent.",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			m.framesSent,
			m.framesReceived,
			m.pendingRequests,
			m.scanDuration,
			m.persistApplied,
			m.fwuAdvisories,
			m.fwuCancellation,
		)
		m.registered = true
	}

	return m
}

// IncFramesSent records one outbound frame.
func (m *Metrics) IncFramesSent() {
	if m == nil {
		return
	}
	m.framesSent.Inc()
}

// IncFramesReceived records one inbound frame.
func (m *Metrics) IncFramesReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// SetPendingRequests sets the current size of the pending-request map.
func (m *Metrics) SetPendingRequests(n int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(n))
}

// ObserveScanDuration records the wall-clock time of one NodeScan pass.
func (m *Metrics) ObserveScanDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(d.Seconds())
}

// IncPersistApplied records one persisted field write, labelled by field.
func (m *Metrics) IncPersistApplied(field string) {
	if m == nil {
		return
	}
	m.persistApplied.WithLabelValues(field).Inc()
}

// IncFWUAdvisory records one logged firmware-update advisory.
func (m *Metrics) IncFWUAdvisory() {
	if m == nil {
		return
	}
	m.fwuAdvisories.Inc()
}

// IncFWUCancellation records one firmware-update cancellation sent.
func (m *Metrics) IncFWUCancellation() {
	if m == nil {
		return
	}
	m.fwuCancellation.Inc()
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil || !m.registered {
		return
	}
	ch <- m.framesSent.Desc()
	ch <- m.framesReceived.Desc()
	ch <- m.pendingRequests.Desc()
	ch <- m.scanDuration.Desc()
	m.persistApplied.Describe(ch)
	ch <- m.fwuAdvisories.Desc()
	ch <- m.fwuCancellation.Desc()
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil || !m.registered {
		return
	}
	ch <- m.framesSent
	ch <- m.framesReceived
	ch <- m.pendingRequests
	ch <- m.scanDuration
	m.persistApplied.Collect(ch)
	ch <- m.fwuAdvisories
	ch <- m.fwuCancellation
}
