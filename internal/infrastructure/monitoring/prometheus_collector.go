package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes the hub's operational metrics.
type PrometheusCollector struct {
	connectionsTotal  prometheus.Gauge
	identitiesOnline  prometheus.Gauge
	activeCalls       prometheus.Gauge
	activeGroupCalls  prometheus.Gauge
	voiceParticipants prometheus.Gauge

	messagesHandled *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	callsStarted    prometheus.Counter
	callDuration    prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voxhub_connections_total",
			Help: "Number of live websocket connections",
		}),

		identitiesOnline: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voxhub_identities_online",
			Help: "Number of identities with at least one connection",
		}),

		activeCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voxhub_calls_active",
			Help: "Number of live one-to-one call sessions",
		}),

		activeGroupCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voxhub_group_calls_active",
			Help: "Number of live group calls",
		}),

		voiceParticipants: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voxhub_voice_participants",
			Help: "Number of identities currently in voice rooms",
		}),

		messagesHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voxhub_messages_handled_total",
			Help: "Inbound websocket messages processed, by type",
		}, []string{"type"}),

		handlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voxhub_handler_errors_total",
			Help: "Handler errors surfaced to clients, by type",
		}, []string{"type"}),

		callsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voxhub_calls_started_total",
			Help: "One-to-one calls started",
		}),

		callDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxhub_call_duration_seconds",
			Help:    "Duration of completed one-to-one calls",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() { p.connectionsTotal.Inc() }

func (p *PrometheusCollector) ConnectionClosed() { p.connectionsTotal.Dec() }

func (p *PrometheusCollector) IdentityOnline() { p.identitiesOnline.Inc() }

func (p *PrometheusCollector) IdentityOffline() { p.identitiesOnline.Dec() }

func (p *PrometheusCollector) CallStarted() { p.callsStarted.Inc() }

func (p *PrometheusCollector) MessageHandled(msgType string) {
	p.messagesHandled.WithLabelValues(msgType).Inc()
}

func (p *PrometheusCollector) HandlerError(msgType string) {
	p.handlerErrors.WithLabelValues(msgType).Inc()
}

func (p *PrometheusCollector) ObserveCallDuration(seconds float64) {
	p.callDuration.Observe(seconds)
}

func (p *PrometheusCollector) SetActiveCalls(n int) { p.activeCalls.Set(float64(n)) }

func (p *PrometheusCollector) SetActiveGroupCalls(n int) { p.activeGroupCalls.Set(float64(n)) }

func (p *PrometheusCollector) SetVoiceParticipants(n int) { p.voiceParticipants.Set(float64(n)) }
