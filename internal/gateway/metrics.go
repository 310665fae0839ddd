package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts gateway traffic and refresh coordination.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	QueuedRequests  prometheus.Counter
	Retries         prometheus.Counter
}

// NewMetrics creates the gateway collectors and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymadmin",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests sent through the gateway by method and status code",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gymadmin",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Round trip duration of gateway requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymadmin",
			Subsystem: "gateway",
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by outcome",
		}, []string{"outcome"}),
		QueuedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymadmin",
			Subsystem: "gateway",
			Name:      "queued_requests_total",
			Help:      "Callers that waited on an in-flight refresh",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gymadmin",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Requests replayed after a token refresh",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestDuration, m.Refreshes, m.QueuedRequests, m.Retries)
	}
	return m
}

func (m *Metrics) observeRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRefresh(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeQueued() {
	if m != nil {
		m.QueuedRequests.Inc()
	}
}

func (m *Metrics) observeRetry() {
	if m != nil {
		m.Retries.Inc()
	}
}
