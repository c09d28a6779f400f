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
			Namespace: "proxyctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "proxyctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	lifecycleOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "proxyctl",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Lifecycle controller operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
	proxyRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "proxyctl",
			Subsystem: "lifecycle",
			Name:      "proxy_running",
			Help:      "Whether the running flag is currently set.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, lifecycleOps, proxyRunning)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordOperation(op, outcome string) {
	RegisterMetrics()
	lifecycleOps.WithLabelValues(op, outcome).Inc()
}

func SetProxyRunning(running bool) {
	RegisterMetrics()
	if running {
		proxyRunning.Set(1)
		return
	}
	proxyRunning.Set(0)
}
