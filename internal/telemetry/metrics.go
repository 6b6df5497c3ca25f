package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Aggregator and diagnosis metrics. Registered once on the default registry;
// the HTTP surface exposes them via promhttp.
var (
	AggregatorGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerpulse_aggregator_groups_total",
		Help: "ASIN/warehouse groups seen by aggregation runs, by outcome.",
	}, []string{"outcome"}) // processed | skipped | failed

	SnapshotsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sellerpulse_snapshots_upserted_total",
		Help: "Inventory snapshot rows written by aggregation runs.",
	})

	AggregatorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerpulse_aggregator_runs_total",
		Help: "Aggregation runs by result.",
	}, []string{"result"}) // ok | error

	Diagnoses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerpulse_diagnoses_total",
		Help: "Completed diagnosis runs by selected scenario.",
	}, []string{"scenario"})

	RuleViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sellerpulse_rule_violations_total",
		Help: "Business rule violations raised during action validation.",
	}, []string{"rule"})

	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sellerpulse_llm_latency_seconds",
		Help:    "Latency of text generation calls.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	LLMErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sellerpulse_llm_errors_total",
		Help: "Failed or timed-out text generation calls.",
	})
)
