// Package metrics carries the daemon's prometheus instrumentation. One
// instance is shared by the factory, the exporter, and the HTTP layer.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics registers every counter on a private registry so the daemon's
// /metrics endpoint exposes exactly its own series.
type Metrics struct {
	registry *prometheus.Registry

	PairsCreated   prometheus.Counter
	EventsAppended prometheus.Counter
	Deposits       *prometheus.CounterVec

	EventsExported prometheus.Counter
	ExportBatches  prometheus.Counter
	ExportRetries  prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New builds and registers the full metric set.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PairsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "pairs_created",
			Help:      "number of pairs created",
		}),
		EventsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "events_appended",
			Help:      "number of events appended to the journal",
		}),
		Deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "market",
			Name:      "deposits",
			Help:      "number of deposit operations by asset kind",
		}, []string{"kind"}),
		EventsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "export",
			Name:      "events_exported",
			Help:      "number of events written to sinks",
		}),
		ExportBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "export",
			Name:      "batches",
			Help:      "number of export batches flushed",
		}),
		ExportRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "export",
			Name:      "retries",
			Help:      "number of sink write retries",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http",
			Name:      "requests",
			Help:      "number of HTTP requests by method and status",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request duration by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	err := errors.Join(
		m.registry.Register(m.PairsCreated),
		m.registry.Register(m.EventsAppended),
		m.registry.Register(m.Deposits),
		m.registry.Register(m.EventsExported),
		m.registry.Register(m.ExportBatches),
		m.registry.Register(m.ExportRetries),
		m.registry.Register(m.HTTPRequests),
		m.registry.Register(m.HTTPDuration),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
