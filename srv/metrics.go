package srv

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the server updates per request.
type Metrics struct {
	// RequestsTotal counts handled requests by method and status code.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes request handling latency by method.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the server metrics and registers them on reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apisrv_requests_total",
				Help: "Total number of handled requests.",
			},
			[]string{"method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apisrv_request_duration_seconds",
				Help:    "Request handling latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	}
	return m
}

// observe records one finished request.
func (m *Metrics) observe(method string, code int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
