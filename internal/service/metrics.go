package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the resolver's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	resolutions    *prometheus.CounterVec
	renderDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_resolutions_total",
				Help: "Report requests by outcome (generated, regenerated, reused, failed).",
			},
			[]string{"outcome"},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "report_render_duration_seconds",
				Help:    "Time spent rendering a report document.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}

	for _, c := range []prometheus.Collector{m.resolutions, m.renderDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) resolved(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) rendered(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}
