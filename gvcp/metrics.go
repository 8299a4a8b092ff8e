package gvcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported by a Session.
// Shape grounded on Generativebots-ocx-backend-go-svc's
// internal/escrow/metrics.go, which registers the same
// promauto.NewCounterVec/NewHistogramVec pairs for a different domain.
type Metrics struct {
	ExchangesTotal          *prometheus.CounterVec
	RetriesTotal            *prometheus.CounterVec
	PendingExtensionsTotal  *prometheus.CounterVec
	ExchangeDuration        *prometheus.HistogramVec
	ControlLostTotal        prometheus.Counter
}

// NewMetrics registers a fresh set of collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the
// global default registry; pass nil to use prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ExchangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gvcp_exchanges_total",
			Help: "Total number of control-channel exchanges, by command and outcome.",
		}, []string{"command", "outcome"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gvcp_retries_total",
			Help: "Total number of retransmits issued by the control channel.",
		}, []string{"command"}),
		PendingExtensionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gvcp_pending_ack_extensions_total",
			Help: "Total number of PENDING_ACK deadline extensions observed.",
		}, []string{"command"}),
		ExchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gvcp_exchange_duration_seconds",
			Help:    "Wall-clock duration of a control-channel exchange.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command", "outcome"}),
		ControlLostTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gvcp_control_lost_total",
			Help: "Total number of control-lost notifications delivered by the heartbeat.",
		}),
	}
}

func (m *Metrics) observeExchange(command string, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ExchangesTotal.WithLabelValues(command, outcome).Inc()
	m.ExchangeDuration.WithLabelValues(command, outcome).Observe(seconds)
}

func (m *Metrics) observeRetry(command string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) observePendingExtension(command string) {
	if m == nil {
		return
	}
	m.PendingExtensionsTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) observeControlLost() {
	if m == nil {
		return
	}
	m.ControlLostTotal.Inc()
}
