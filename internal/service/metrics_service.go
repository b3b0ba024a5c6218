package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the optimization engine. It satisfies the engine's metrics sink.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runDuration     prometheus.Histogram
	generationTotal *prometheus.CounterVec
	bestScore       *prometheus.GaugeVec
	advisoryTotal   *prometheus.CounterVec
	repairShortfall prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_run_duration_seconds",
		Help:    "Wall time of complete optimization runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_generations_total",
		Help: "Generations evaluated per phase",
	}, []string{"phase"})

	bestScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_best_score",
		Help: "Best candidate score seen in the current phase",
	}, []string{"phase"})

	advisoryTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_advisory_calls_total",
		Help: "Advisory calls by kind and outcome",
	}, []string{"kind", "outcome"})

	repairShortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_repair_shortfall_total",
		Help: "Sessions the repair engine could not re-place",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runDuration, generationTotal, bestScore, advisoryTotal, repairShortfall, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runDuration:     runDuration,
		generationTotal: generationTotal,
		bestScore:       bestScore,
		advisoryTotal:   advisoryTotal,
		repairShortfall: repairShortfall,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveEngineRun records the wall time of one optimization run.
func (m *MetricsService) ObserveEngineRun(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
}

// ObserveGeneration implements the engine metrics sink.
func (m *MetricsService) ObserveGeneration(phase string, _ int, bestScore float64) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(phase).Inc()
	m.bestScore.WithLabelValues(phase).Set(bestScore)
}

// RecordAdvisory implements the engine metrics sink.
func (m *MetricsService) RecordAdvisory(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "fallback"
	}
	m.advisoryTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRepairShortfall implements the engine metrics sink.
func (m *MetricsService) RecordRepairShortfall(sessions int) {
	if m == nil {
		return
	}
	m.repairShortfall.Add(float64(sessions))
}
