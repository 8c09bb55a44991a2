// Package metrics exposes Prometheus collectors for the HTTP API and the
// scoreboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pawboard"

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsLogged    *prometheus.CounterVec
	eventsDeleted   prometheus.Counter
	registrations   prometheus.Counter
	scoreboardTime  prometheus.Histogram
}

// New builds a private registry holding the service collectors plus the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		eventsLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_logged_total",
			Help:      "Care events logged, by event type.",
		}, []string{"type"}),
		eventsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_deleted_total",
			Help:      "Care events removed by deletes and admin clears.",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Users registered.",
		}),
		scoreboardTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoreboard_compute_seconds",
			Help:      "Time spent computing a household scoreboard.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.eventsLogged,
		m.eventsDeleted,
		m.registrations,
		m.scoreboardTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) EventLogged(eventType string) {
	if m == nil {
		return
	}
	m.eventsLogged.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventsDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsDeleted.Add(float64(n))
}

func (m *Metrics) UserRegistered() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) ObserveScoreboard(d time.Duration) {
	if m == nil {
		return
	}
	m.scoreboardTime.Observe(d.Seconds())
}
