// Package metrics exports signaling counters to Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for frames that never reached a connection.
const (
	DropBackpressure = "backpressure"
	DropClosed       = "closed"
	DropEncode       = "encode"
)

type Metrics struct {
	reg *prometheus.Registry

	online       prometheus.Gauge
	activeCalls  prometheus.Gauge
	callsStarted prometheus.Counter
	callErrors   *prometheus.CounterVec
	relayed      *prometheus.CounterVec
	dropped      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voice",
			Name:      "online_users",
			Help:      "Currently registered connections.",
		}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voice",
			Name:      "active_calls",
			Help:      "Call sessions with at least one member.",
		}),
		callsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "calls_started_total",
			Help:      "Successful call:start requests.",
		}),
		callErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "call_errors_total",
			Help:      "Call requests rejected, by reason.",
		}, []string{"reason"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "relayed_messages_total",
			Help:      "Negotiation payloads delivered to call members.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames that were not queued.",
		}, []string{"reason"}),
	}
	m.reg.MustRegister(m.online, m.activeCalls, m.callsStarted, m.callErrors, m.relayed, m.dropped)
	return m
}

func (m *Metrics) SetOnline(n int) {
	if m == nil {
		return
	}
	m.online.Set(float64(n))
}

func (m *Metrics) SetActiveCalls(n int) {
	if m == nil {
		return
	}
	m.activeCalls.Set(float64(n))
}

func (m *Metrics) CallStarted() {
	if m == nil {
		return
	}
	m.callsStarted.Inc()
}

func (m *Metrics) CallError(reason string) {
	if m == nil {
		return
	}
	m.callErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) Relayed(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.relayed.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
