package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for device resolution.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LookupCalls    *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	LookupRetries  *prometheus.CounterVec
	StageHits      *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	RowsProcessed  prometheus.Counter
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devicelink_lookup_calls_total",
			Help: "Calls to the device lookup service by endpoint and result",
		}, []string{"endpoint", "result"}),
		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devicelink_lookup_duration_seconds",
			Help:    "Latency of device lookup service calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		LookupRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devicelink_lookup_retries_total",
			Help: "Retried device lookup calls after transient failure",
		}, []string{"endpoint"}),
		StageHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devicelink_resolution_stage_hits_total",
			Help: "Resolution cascade stages that produced the first match",
		}, []string{"stage"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devicelink_resolution_outcomes_total",
			Help: "Resolution outcomes by kind",
		}, []string{"kind"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devicelink_resolution_cache_lookups_total",
			Help: "Resolution cache lookups by result",
		}, []string{"result"}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "devicelink_rows_processed_total",
			Help: "Registry rows processed by batch runs",
		}),
	}
}

func (m *Metrics) ObserveLookup(endpoint, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LookupCalls.WithLabelValues(endpoint, result).Inc()
	m.LookupDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementRetries(endpoint string) {
	if m == nil {
		return
	}
	m.LookupRetries.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) IncrementStageHit(stage string) {
	if m == nil {
		return
	}
	m.StageHits.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncrementOutcome(kind string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrementRowsProcessed() {
	if m == nil {
		return
	}
	m.RowsProcessed.Inc()
}
