package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kickroom"

// Metrics owns a private Prometheus registry. It implements room.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	members          prometheus.Gauge
	messages         *prometheus.CounterVec
	votesStarted     prometheus.Counter
	votesEnded       *prometheus.CounterVec
	deliveryFailures prometheus.Counter
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_members",
			Help:      "Members currently in the room.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_messages_total",
			Help:      "Chat messages broadcast, by kind.",
		}, []string{"kind"}),
		votesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_votes_started_total",
			Help:      "Kick votes started.",
		}),
		votesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_votes_ended_total",
			Help:      "Kick votes ended, by outcome.",
		}, []string{"outcome"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_delivery_failures_total",
			Help:      "Events that could not be queued for a member.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.members,
		m.messages,
		m.votesStarted,
		m.votesEnded,
		m.deliveryFailures,
		m.requestDuration,
	)

	return m
}

func (m *Metrics) MembersChanged(count int) {
	m.members.Set(float64(count))
}

func (m *Metrics) MessageSent(kind domain.MessageKind) {
	m.messages.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) VoteStarted() {
	m.votesStarted.Inc()
}

func (m *Metrics) VoteEnded(outcome string) {
	m.votesEnded.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DeliveryFailed() {
	m.deliveryFailures.Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
