// Package metrics exposes the portal's prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

const namespace = "masomo_portal"

type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	authenticated prometheus.Gauge
	apiCalls      *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
}

var (
	_ session.Observer   = (*Metrics)(nil)
	_ schoolapi.Observer = (*Metrics)(nil)
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to", "reason"}),
		authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_authenticated",
			Help:      "1 while a user is signed in.",
		}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "School API requests by route and status code (0 on transport failure).",
		}, []string{"method", "route", "code"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "School API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.authenticated,
		m.apiCalls,
		m.apiDuration,
	)
	return m
}

func (m *Metrics) Transition(from, to session.Status, reason string) {
	m.transitions.WithLabelValues(from.String(), to.String(), reason).Inc()
	if to == session.StatusAuthenticated {
		m.authenticated.Set(1)
	} else {
		m.authenticated.Set(0)
	}
}

func (m *Metrics) APICall(method, route string, status int, elapsed time.Duration) {
	m.apiCalls.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
