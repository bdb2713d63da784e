package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ingestion outcomes on a private registry. A batch run has
// no scrape endpoint, so the registry is exported with WriteTextfile.
type Metrics struct {
	registry    *prometheus.Registry
	lots        *prometheus.CounterVec
	photos      *prometheus.CounterVec
	runDuration prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vinwreck_lots_total",
			Help: "Lot pages processed, by terminal outcome.",
		}, []string{"outcome"}),
		photos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vinwreck_photos_total",
			Help: "Photo attempts, by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vinwreck_run_duration_seconds",
			Help: "Wall time of the last ingestion run.",
		}),
	}
	m.registry.MustRegister(m.lots, m.photos, m.runDuration)
	return m
}

func (m *Metrics) LotOutcome(outcome string) {
	m.lots.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Photo(ok bool) {
	if ok {
		m.photos.WithLabelValues("saved").Inc()
		return
	}
	m.photos.WithLabelValues("failed").Inc()
}

func (m *Metrics) RunFinished(d time.Duration) {
	m.runDuration.Set(d.Seconds())
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
