package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters. Constructed once per process against
// the registry exposed on /metrics; tests pass their own registry.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	EventsParsed    prometheus.Counter
	LinesDropped    prometheus.Counter
	LookupsIssued   prometheus.Counter
	LookupCacheHits prometheus.Counter
	LookupFailures  *prometheus.CounterVec
	RunDuration     prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "The total number of pipeline runs",
		}, []string{"status"}),
		EventsParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_events_parsed_total",
			Help: "The total number of structured events extracted",
		}),
		LinesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_lines_dropped_total",
			Help: "The total number of lines matching no sub-pattern",
		}),
		LookupsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "lookup_requests_total",
			Help: "The total number of outbound geolocation lookups",
		}),
		LookupCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "lookup_cache_hits_total",
			Help: "The total number of lookups served from the cache",
		}),
		LookupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lookup_failures_total",
			Help: "The total number of failed lookups",
		}, []string{"kind"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "The duration of pipeline runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncRunsTotal increments the run counter with a terminal status label.
func (m *Metrics) IncRunsTotal(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// IncLookupFailures increments the failure counter for one failure kind.
func (m *Metrics) IncLookupFailures(kind string) {
	m.LookupFailures.WithLabelValues(kind).Inc()
}
