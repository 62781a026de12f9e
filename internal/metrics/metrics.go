package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice_client"

// Teardown protocols and results.
const (
	ProtocolSelfKick   = "self_kick"
	ProtocolRemoveRoom = "remove_room"

	ResultOK      = "ok"
	ResultAlready = "already"
	ResultFailed  = "failed"
)

// Metrics holds collectors on a private registry. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	peersCreated        prometheus.Counter
	peersClosed         prometheus.Counter
	peersActive         prometheus.Gauge
	candidatesRejected  prometheus.Counter
	monitorsActive      prometheus.Gauge
	speakingTransitions *prometheus.CounterVec
	teardowns           *prometheus.CounterVec
	cleanupFailures     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		peersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "peers_created_total",
			Help: "Negotiation units created.",
		}),
		peersClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "peers_closed_total",
			Help: "Negotiation units closed.",
		}),
		peersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "peers_active",
			Help: "Registered negotiation units.",
		}),
		candidatesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_rejected_total",
			Help: "Remote ICE candidates that failed to apply.",
		}),
		monitorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "activity_monitors_active",
			Help: "Surfaces with a running audio activity monitor.",
		}),
		speakingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "speaking_transitions_total",
			Help: "Speaking state changes by direction.",
		}, []string{"to"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "teardowns_total",
			Help: "Teardown protocol runs by protocol and result.",
		}, []string{"protocol", "result"}),
		cleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cleanup_step_failures_total",
			Help: "Isolated cleanup step failures by step.",
		}, []string{"step"}),
	}
	m.registry.MustRegister(
		m.peersCreated,
		m.peersClosed,
		m.peersActive,
		m.candidatesRejected,
		m.monitorsActive,
		m.speakingTransitions,
		m.teardowns,
		m.cleanupFailures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PeerCreated() {
	if m == nil {
		return
	}
	m.peersCreated.Inc()
	m.peersActive.Inc()
}

func (m *Metrics) PeerClosed() {
	if m == nil {
		return
	}
	m.peersClosed.Inc()
	m.peersActive.Dec()
}

func (m *Metrics) CandidateRejected() {
	if m == nil {
		return
	}
	m.candidatesRejected.Inc()
}

func (m *Metrics) MonitorStarted() {
	if m == nil {
		return
	}
	m.monitorsActive.Inc()
}

func (m *Metrics) MonitorStopped() {
	if m == nil {
		return
	}
	m.monitorsActive.Dec()
}

func (m *Metrics) SpeakingChanged(speaking bool) {
	if m == nil {
		return
	}
	to := "silent"
	if speaking {
		to = "speaking"
	}
	m.speakingTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) Teardown(protocol, result string) {
	if m == nil {
		return
	}
	m.teardowns.WithLabelValues(protocol, result).Inc()
}

func (m *Metrics) CleanupFailed(step string) {
	if m == nil {
		return
	}
	m.cleanupFailures.WithLabelValues(step).Inc()
}
