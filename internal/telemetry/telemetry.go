// Package telemetry exposes the waterfall analyzer's performance and
// correctness signals as Prometheus metrics. Grounded on the teacher's
// MetricsRegistry (internal/interfaces/http/metrics.go): a struct of
// pre-built collectors constructed with prometheus.New*Vec and registered
// in one place.
//
// Unlike the teacher, which registers against the global default
// registry, each MetricsRegistry here owns a private prometheus.Registry.
// Analyses are per-call owned state with no shared mutable globals
// (spec.md §5, §9), and a process that runs more than one Analyzer
// concurrently (or in tests) must be able to construct more than one
// MetricsRegistry without a duplicate-registration panic.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
)

// MetricsRegistry holds the Prometheus collectors for one captable
// analysis engine instance.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Analysis performance.
	AnalysisDuration *prometheus.HistogramVec
	SolverIterations *prometheus.HistogramVec
	AnalysesTotal    *prometheus.CounterVec
	ActiveAnalyses   prometheus.Gauge

	// RVPS memoization cache (spec.md §4.4, §9).
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheHitRatio prometheus.Gauge

	// Breakpoint and convergence outcomes (spec.md §4.3, §7).
	BreakpointsByType   *prometheus.CounterVec
	ConvergenceFailures *prometheus.CounterVec
}

// NewMetricsRegistry constructs a MetricsRegistry with its own private
// prometheus.Registry and registers every collector against it.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()

	m := &MetricsRegistry{
		registry: reg,

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "captable_analysis_duration_seconds",
				Help:    "Wall time of a full waterfall analysis",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),

		SolverIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "captable_solver_iterations",
				Help:    "Iterations used by a circularity solver call (option exercise or voluntary conversion)",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
			},
			[]string{"solver"},
		),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_analyses_total",
				Help: "Total number of analyses run, by outcome",
			},
			[]string{"result"},
		),

		ActiveAnalyses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "captable_active_analyses",
				Help: "Number of analyses currently in flight",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "captable_rvps_cache_hits_total",
				Help: "Total RVPS memoization cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "captable_rvps_cache_misses_total",
				Help: "Total RVPS memoization cache misses",
			},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "captable_rvps_cache_hit_ratio",
				Help: "RVPS memoization cache hit ratio for the most recently finished analysis",
			},
		),

		BreakpointsByType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_breakpoints_total",
				Help: "Total breakpoints produced, by breakpoint type",
			},
			[]string{"type"},
		),

		ConvergenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_convergence_failures_total",
				Help: "Total solver non-convergence warnings, by solver",
			},
			[]string{"solver"},
		),
	}

	reg.MustRegister(
		m.AnalysisDuration,
		m.SolverIterations,
		m.AnalysesTotal,
		m.ActiveAnalyses,
		m.CacheHits,
		m.CacheMisses,
		m.CacheHitRatio,
		m.BreakpointsByType,
		m.ConvergenceFailures,
	)

	return m
}

// ObserveMetrics folds an audit.Metrics record (produced by one finished
// Analyze call) into the Prometheus collectors: analysis duration, per-key
// solver iteration counts, and the cache hit ratio.
func (m *MetricsRegistry) ObserveMetrics(result string, am *audit.Metrics) {
	m.AnalysisDuration.WithLabelValues(result).Observe(am.AnalysisWallTime.Seconds())
	m.AnalysesTotal.WithLabelValues(result).Inc()

	for key, iterations := range am.SolverIterations {
		m.SolverIterations.WithLabelValues(solverFromKey(key)).Observe(float64(iterations))
	}

	if am.CacheHits > 0 {
		m.CacheHits.Add(float64(am.CacheHits))
	}
	if am.CacheMisses > 0 {
		m.CacheMisses.Add(float64(am.CacheMisses))
	}
	total := am.CacheHits + am.CacheMisses
	if total > 0 {
		m.CacheHitRatio.Set(float64(am.CacheHits) / float64(total))
	}
}

// ObserveTrail increments the convergence-failure counter once per warning
// entry in an audit.Trail.
func (m *MetricsRegistry) ObserveTrail(trail *audit.Trail) {
	for _, e := range trail.Warnings() {
		m.ConvergenceFailures.WithLabelValues(e.Phase).Inc()
	}
}

// ObserveBreakpointCounts increments BreakpointsByType once per breakpoint
// type name supplied, in the counts given.
func (m *MetricsRegistry) ObserveBreakpointCounts(counts map[string]int) {
	for typ, n := range counts {
		m.BreakpointsByType.WithLabelValues(typ).Add(float64(n))
	}
}

// Handler returns an HTTP handler serving this registry's metrics in the
// Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// solverFromKey extracts the solver family from a Metrics.SolverIterations
// key. Keys are "option_exercise:<strike>", "conversion:<classID>" or
// "post_cap_conversion:<classID>" (see waterfall's solver call sites).
func solverFromKey(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
