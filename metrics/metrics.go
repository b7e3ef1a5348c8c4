// Package metrics exposes Noctum's Prometheus instrumentation: one set of
// counters/gauges/histograms for processing cycles, LLM calls, and mutation
// outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctum_cycles_total",
			Help: "Total number of repository processing cycles by outcome",
		},
		[]string{"outcome"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noctum_cycle_duration_seconds",
			Help:    "Time taken to process one repository cycle in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctum_llm_calls_total",
			Help: "Total number of LLM generation calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noctum_llm_call_duration_seconds",
			Help:    "LLM generation call duration in seconds by endpoint",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctum_mutations_total",
			Help: "Total number of mutation verifications by outcome",
		},
		[]string{"outcome"},
	)

	MutationScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noctum_mutation_score",
			Help: "Fraction of verified mutations killed, by repository",
		},
		[]string{"repository"},
	)

	AnalysisResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctum_analysis_results_total",
			Help: "Total number of analysis results persisted by analysis type",
		},
		[]string{"analysis_type"},
	)

	DiagramsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noctum_diagrams_generated_total",
			Help: "Total number of diagrams (re)generated by type",
		},
		[]string{"diagram_type"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(LLMCallsTotal)
	prometheus.MustRegister(LLMCallDuration)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(MutationScore)
	prometheus.MustRegister(AnalysisResultsTotal)
	prometheus.MustRegister(DiagramsGeneratedTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
