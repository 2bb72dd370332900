package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NicolasHaas/godata/pkg/bannable"
	"github.com/NicolasHaas/godata/pkg/orm"
)

// Metrics holds the Prometheus collectors of one server.
type Metrics struct {
	bansTotal       *prometheus.CounterVec
	unbansTotal     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.bansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bans",
			Name:      "banned_total",
			Help:      "Records banned.",
		},
		[]string{"type"},
	)
	m.unbansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bans",
			Name:      "unbanned_total",
			Help:      "Records unbanned.",
		},
		[]string{"type"},
	)
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight",
			Help:      "Requests currently being served.",
		},
	)

	m.registry.MustRegister(
		m.bansTotal,
		m.unbansTotal,
		m.requestsTotal,
		m.requestDuration,
		m.inFlight,
		collectors.NewGoCollector(),
	)
	return m
}

// Observe counts ban state changes of a record type.
func (m *Metrics) Observe(meta *orm.Meta) {
	bannable.OnBanned(meta, func(context.Context, *orm.Model) bool {
		m.bansTotal.WithLabelValues(meta.Name).Inc()
		return true
	})
	bannable.OnUnbanned(meta, func(_ context.Context, rec *orm.Model) bool {
		// unbanned also fires after a vetoed save; the column is then still
		// dirty and nothing reached storage.
		if rec.IsDirty(bannable.New(rec).BannedAtColumn()) {
			return true
		}
		m.unbansTotal.WithLabelValues(meta.Name).Inc()
		return true
	})
}

// Banned returns the banned counter for a type name.
func (m *Metrics) Banned(typeName string) prometheus.Counter {
	return m.bansTotal.WithLabelValues(typeName)
}

// Unbanned returns the unbanned counter for a type name.
func (m *Metrics) Unbanned(typeName string) prometheus.Counter {
	return m.unbansTotal.WithLabelValues(typeName)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
