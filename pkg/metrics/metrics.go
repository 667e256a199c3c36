package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the dispatch subsystem.
type Metrics struct {
	registry *prometheus.Registry

	ReportsIngested   prometheus.Counter
	ReportsRejected   prometheus.Counter
	FanoutEvents      prometheus.Counter
	OffersOpened      prometheus.Counter
	OffersResolved    *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
}

// New creates a metrics set backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Metrics{
		registry: reg,
		ReportsIngested: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_location_reports_ingested_total",
			Help: "Location reports accepted by the ingest pipeline.",
		}),
		ReportsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_location_reports_rejected_total",
			Help: "Location reports rejected by validation.",
		}),
		FanoutEvents: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_fanout_events_total",
			Help: "Events fanned out to tracking subscribers.",
		}),
		OffersOpened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offers_opened_total",
			Help: "Delivery offers broadcast to candidate drivers.",
		}),
		OffersResolved: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offers_resolved_total",
			Help: "Delivery offers reaching a terminal state, by outcome.",
		}, []string{"outcome"}),
		ActiveConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_active_connections",
			Help: "Live WebSocket connections.",
		}),
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
