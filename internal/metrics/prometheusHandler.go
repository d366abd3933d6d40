package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_sessions",
	Help: "Number of live conversational sessions",
})

var queryRewrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "query_rewrites_total",
	Help: "Rewrite decisions labelled by outcome (rewritten, unchanged, fallback)",
}, []string{"decision"})

var citationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "citations_dropped_total",
	Help: "Citations discarded because their message id was not among the retrieved chunks",
})

var generationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "generation_fallbacks_total",
	Help: "Times a component fell back because the generation service failed",
}, []string{"component"})

var turnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "turn_duration_seconds",
	Help:    "Total time spent answering one conversational turn.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls and turn steps.",
	Buckets: []float64{.005, .05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func CountRewrite(decision string) {
	queryRewrites.WithLabelValues(decision).Inc()
}

func CountDroppedCitations(n int) {
	if n > 0 {
		citationsDropped.Add(float64(n))
	}
}

func CountGenerationFallback(component string) {
	generationFallbacks.WithLabelValues(component).Inc()
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureTurnMetrics(outcome string, timeElapsed time.Duration) {
	turnDuration.WithLabelValues(outcome).Observe(timeElapsed.Seconds())
}
