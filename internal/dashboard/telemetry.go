package dashboard

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load results reported by Telemetry
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultCacheHit = "cache_hit"
)

// Telemetry holds the dashboard's prometheus collectors on a private
// registry. A nil *Telemetry records nothing.
type Telemetry struct {
	registry     *prometheus.Registry
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	datasetRows  prometheus.Gauge
	renders      *prometheus.CounterVec
	builds       prometheus.Counter
}

// NewTelemetry registers the dashboard collectors plus the Go runtime and
// process collectors
func NewTelemetry() *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		registry: reg,
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpidash",
			Name:      "workbook_loads_total",
			Help:      "Workbook loads by result (success, error, cache_hit).",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kpidash",
			Name:      "workbook_load_duration_seconds",
			Help:      "Time spent reading and processing the workbook.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kpidash",
			Name:      "dataset_rows",
			Help:      "Rows in the last successfully loaded table.",
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kpidash",
			Name:      "chart_renders_total",
			Help:      "Chart renders by chart and result.",
		}, []string{"chart", "result"}),
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kpidash",
			Name:      "dashboard_builds_total",
			Help:      "Dashboard views built.",
		}),
	}
	reg.MustRegister(
		t.loads, t.loadDuration, t.datasetRows, t.renders, t.builds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return t
}

// Registry exposes the collectors, mostly for tests
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves the registry in the prometheus text format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) observeLoad(result string, elapsed time.Duration, rows int) {
	if t == nil {
		return
	}
	t.loads.WithLabelValues(result).Inc()
	if result == ResultCacheHit {
		return
	}
	t.loadDuration.Observe(elapsed.Seconds())
	if result == ResultSuccess {
		t.datasetRows.Set(float64(rows))
	}
}

func (t *Telemetry) observeRender(chart string, err error) {
	if t == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	t.renders.WithLabelValues(chart, result).Inc()
}

func (t *Telemetry) observeBuild() {
	if t == nil {
		return
	}
	t.builds.Inc()
}
