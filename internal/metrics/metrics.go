// Package metrics holds the Prometheus collectors shared by the session and
// the HTTP host.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "micro"

// Collectors groups every metric the runtime exports.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	initTotal      *prometheus.CounterVec
	invokeTotal    *prometheus.CounterVec
	invokeDuration prometheus.Histogram
	arenaUsed      prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec
}

// New creates unregistered collectors.
func New() *Collectors {
	return &Collectors{
		initTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "initializations_total",
				Help:      "Session initializations by status code",
			},
			[]string{"status"},
		),
		invokeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "invocations_total",
				Help:      "Inference calls by status code",
			},
			[]string{"status"},
		),
		invokeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "invoke_duration_seconds",
				Help:      "Duration of successful inference calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		arenaUsed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "arena_used_bytes",
				Help:      "Arena bytes committed by the last successful initialization",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
		httpInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "In-flight HTTP requests",
			},
			[]string{"path"},
		),
	}
}

// MustRegister registers every collector with reg.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.initTotal, c.invokeTotal, c.invokeDuration, c.arenaUsed,
		c.httpRequestsTotal, c.httpRequestDuration, c.httpInflight,
	)
}

// ObserveInit records one Initialize outcome.
func (c *Collectors) ObserveInit(status int) {
	if c == nil {
		return
	}
	c.initTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveInvoke records one inference outcome. Latency is kept only for
// successful calls.
func (c *Collectors) ObserveInvoke(status int, d time.Duration) {
	if c == nil {
		return
	}
	c.invokeTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	if status == 0 {
		c.invokeDuration.Observe(d.Seconds())
	}
}

// SetArenaUsed publishes the committed arena size.
func (c *Collectors) SetArenaUsed(n int) {
	if c == nil {
		return
	}
	c.arenaUsed.Set(float64(n))
}

// TrackRequest marks a request on path as in flight and returns the function
// that completes it.
func (c *Collectors) TrackRequest(path string) func(method string, status int, d time.Duration) {
	if c == nil {
		return func(string, int, time.Duration) {}
	}
	c.httpInflight.WithLabelValues(path).Inc()
	return func(method string, status int, d time.Duration) {
		c.httpInflight.WithLabelValues(path).Dec()
		label := strconv.Itoa(status)
		c.httpRequestsTotal.WithLabelValues(path, method, label).Inc()
		c.httpRequestDuration.WithLabelValues(path, method, label).Observe(d.Seconds())
	}
}
