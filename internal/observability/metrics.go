package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/auditexport/internal/model"
)

// Metrics records export progress as Prometheus metrics.
type Metrics struct {
	pages         prometheus.Counter
	entries       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	truncated     *prometheus.CounterVec
	inflight      prometheus.Gauge
	batchDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auditexport_pages_total",
			Help: "Audit log pages fetched from the source.",
		}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auditexport_entries_total",
			Help: "Audit entries fetched, by type label.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auditexport_type_failures_total",
			Help: "Per-type fetches abandoned after an error.",
		}, []string{"type"}),
		truncated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auditexport_type_truncated_total",
			Help: "Per-type fetches stopped by the page ceiling.",
		}, []string{"type"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auditexport_inflight_fetches",
			Help: "Per-type fetches currently running.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditexport_batch_duration_seconds",
			Help:    "Wall time of one concurrent batch of type fetches.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.pages, m.entries, m.failures, m.truncated, m.inflight, m.batchDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) BatchStarted(int, []model.EventType) {}

func (m *Metrics) BatchFinished(_ int, _ []model.TypeResult, elapsed time.Duration) {
	m.batchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FetchStarted(model.EventType) {
	m.inflight.Inc()
}

func (m *Metrics) PageFetched(model.EventType, int) {
	m.pages.Inc()
}

func (m *Metrics) TypeFinished(r model.TypeResult, _ time.Duration) {
	m.inflight.Dec()
	switch {
	case r.Err != nil:
		m.failures.WithLabelValues(r.Label).Inc()
	case r.Truncated:
		m.truncated.WithLabelValues(r.Label).Inc()
	}
	if n := len(r.Entries); n > 0 {
		m.entries.WithLabelValues(r.Label).Add(float64(n))
	}
}
