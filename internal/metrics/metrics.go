// Package metrics exposes cycle and outcome counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibeckermayer/postcycle/internal/types"
)

const namespace = "postcycle"

// Metrics holds the collectors for one registry
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     *prometheus.CounterVec
	OutcomesTotal   *prometheus.CounterVec
	TrendsFetched   prometheus.Gauge
	CycleDuration   prometheus.Histogram
	LastCycleTime   prometheus.Gauge
	FallbackTexts   *prometheus.CounterVec
	MediaDowngrades prometheus.Counter
}

// New registers all collectors on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total posting cycles run",
			},
			[]string{"media"}, // "true", "false"
		),

		OutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Publish outcomes by channel, status and error kind",
			},
			[]string{"channel", "status", "error_kind"},
		),

		TrendsFetched: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "trends_fetched",
				Help:      "Number of trends fetched in the last cycle",
			},
		),

		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of posting cycles in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 500ms to ~1m
			},
		),

		LastCycleTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_cycle_timestamp_seconds",
				Help:      "Unix time the last cycle finished",
			},
		),

		FallbackTexts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_texts_total",
				Help:      "Posts that used fallback text because generation failed",
			},
			[]string{"channel"},
		),

		MediaDowngrades: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "media_downgrades_total",
				Help:      "Cycles that planned media but fell back to text-only",
			},
		),
	}
}

// Observe records a finished cycle
func (m *Metrics) Observe(r types.CycleReport) {
	m.CyclesTotal.WithLabelValues(strconv.FormatBool(r.UsedMedia)).Inc()
	m.TrendsFetched.Set(float64(r.TrendCount))
	m.CycleDuration.Observe(r.Duration().Seconds())
	m.LastCycleTime.Set(float64(r.FinishedAt.Unix()))
	if r.MediaDowngraded {
		m.MediaDowngrades.Inc()
	}

	for _, o := range r.Outcomes {
		status := "failure"
		if o.Success {
			status = "success"
		}
		m.OutcomesTotal.WithLabelValues(o.Channel, status, string(o.Error)).Inc()
		if o.Fallback {
			m.FallbackTexts.WithLabelValues(o.Channel).Inc()
		}
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
