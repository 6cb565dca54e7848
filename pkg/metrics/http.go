package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks API traffic per route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the request metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{requests: requests, duration: duration}
}

// Observe records one finished request.
func (h *HTTPMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	route = normalizeLabel(route)
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// NotificationMetrics counts dispatched emails by event and outcome.
type NotificationMetrics struct {
	sent *prometheus.CounterVec
}

// NewNotificationMetrics registers the notification counters.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification emails by event and result.",
	}, []string{"event", "result"})
	reg.MustRegister(sent)
	return &NotificationMetrics{sent: sent}
}

// IncSent records a delivery attempt. result is "ok" or "error".
func (n *NotificationMetrics) IncSent(event, result string) {
	if n == nil || n.sent == nil {
		return
	}
	n.sent.WithLabelValues(normalizeLabel(event), result).Inc()
}
