package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roaster"

var (
	analysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Analyses by outcome (success or error code).",
		},
		[]string{"outcome"},
	)

	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End to end analysis duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	llmAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_attempts_total",
			Help:      "Model dispatches by result.",
		},
		[]string{"result"},
	)

	llmRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Model dispatches that were retries.",
		},
	)

	securityFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_flags_total",
			Help:      "Screened requests by decision.",
		},
		[]string{"decision"},
	)

	persistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Records that could not be stored.",
		},
	)

	invariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assembly_invariant_violations_total",
			Help:      "Assembled records that failed the final invariant check.",
		},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(analysisTotal, analysisDuration, llmAttempts, llmRetries,
		securityFlags, persistFailures, invariantViolations, requestDuration)
}

// IncAnalysis counts a finished analysis. outcome is "success" or an error code.
func IncAnalysis(outcome string) {
	analysisTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}

// ObserveLLMAttempt counts one dispatch. result is "success" or an error kind.
func ObserveLLMAttempt(result string) {
	llmAttempts.WithLabelValues(result).Inc()
}

// IncLLMRetry counts a retried dispatch.
func IncLLMRetry() {
	llmRetries.Inc()
}

// IncSecurityFlag counts a screening decision.
func IncSecurityFlag(decision string) {
	securityFlags.WithLabelValues(decision).Inc()
}

// IncPersistFailure counts a record that failed to store.
func IncPersistFailure() {
	persistFailures.Inc()
}

// IncAssemblyInvariantViolation counts a record rejected by the final check.
func IncAssemblyInvariantViolation() {
	invariantViolations.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// GinMiddleware records request durations per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestDuration.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
