package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascmd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ascmd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sessionCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascmd",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Agent commands by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ascmd",
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Agent command round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"verb", "outcome"},
	)
	gatewayReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascmd",
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Session reopen attempts after a fatal error.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sessionCommands, sessionDuration, gatewayReconnects)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCommand counts one agent round trip. outcome is "ok" or an error
// kind.
func RecordCommand(verb, outcome string, duration time.Duration) {
	RegisterMetrics()
	sessionCommands.WithLabelValues(verb, outcome).Inc()
	sessionDuration.WithLabelValues(verb, outcome).Observe(duration.Seconds())
}

func RecordReconnect(success bool) {
	RegisterMetrics()
	gatewayReconnects.WithLabelValues(strconv.FormatBool(success)).Inc()
}
