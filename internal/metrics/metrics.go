package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the collector set served on /metrics. Tests can create their
// own with New to avoid duplicate registration.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	Notifications      *prometheus.CounterVec
	ChatConnections    prometheus.Gauge
	ChatMessages       *prometheus.CounterVec
	BookingTransitions *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification dispatch attempts by kind and outcome.",
		}, []string{"kind", "status"}),
		ChatConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Open chat websocket connections.",
		}),
		ChatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Persisted chat messages by sender type.",
		}, []string{"sender"}),
		BookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions by target status.",
		}, []string{"status"}),
	}

	r.reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		r.HTTPRequests,
		r.HTTPDuration,
		r.Notifications,
		r.ChatConnections,
		r.ChatMessages,
		r.BookingTransitions,
	)
	return r
}

// Gatherer exposes the underlying registry to promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
