// Package metrics provides Prometheus metrics for the HTTP surface and for
// itinerary pipeline runs.
package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "itinerary"
)

// Job metric counter indices.
const (
	JobMetricTotal = iota
	JobMetricTotalSuccess
	JobMetricTotalFailed
	JobMetricTotalCancelled
)

// Metrics holds the registry and every collector the service exposes.
// Collectors for disabled groups stay nil and their helpers become no-ops.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPRequestsCounters     map[int]prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram
	httpMu                   sync.Mutex

	JobMetricCounters    map[int]prometheus.Counter
	RunDurationHistogram prometheus.Histogram
	TaskCounter          *prometheus.CounterVec
	ToolCallCounter      *prometheus.CounterVec

	customMetrics []prometheus.Collector

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates a new Metrics instance with the specified collectors enabled.
func NewMetrics(httpCounters, jobMetrics bool, l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}
	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests",
		})
		m.reg.MustRegister(m.TotalHTTPRequestsCounter)
		m.HTTPRequestsCounters = make(map[int]prometheus.Counter)

		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.reg.MustRegister(m.HTTPDurationHistogram)
	}
	if jobMetrics {
		m.JobMetricCounters = getJobMetricCounters()
		for k := range m.JobMetricCounters {
			m.reg.MustRegister(m.JobMetricCounters[k])
		}

		// Runs call a remote LLM several times and take tens of seconds.
		m.RunDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Itinerary pipeline run duration in seconds",
			Buckets:   []float64{5, 10, 20, 30, 60, 90, 120, 180, 300, 600},
		})
		m.TaskCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "tasks_completed_total",
			Help:      "Tasks completed, by executing agent role",
		}, []string{"agent"})
		m.ToolCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "tool_calls_total",
			Help:      "Tool invocations, by tool name and outcome",
		}, []string{"tool", "outcome"})
		m.reg.MustRegister(m.RunDurationHistogram, m.TaskCounter, m.ToolCallCounter)
	}
	return m
}

func getJobMetricCounters() map[int]prometheus.Counter {
	m := make(map[int]prometheus.Counter)
	m[JobMetricTotal] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_runs_handled",
		Help:      "Total pipeline runs handled",
	})
	m[JobMetricTotalSuccess] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_runs_successful",
		Help:      "Total pipeline runs completed successfully",
	})
	m[JobMetricTotalFailed] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_runs_failed",
		Help:      "Total pipeline runs that failed",
	})
	m[JobMetricTotalCancelled] = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_runs_cancelled",
		Help:      "Total pipeline runs cancelled before completion",
	})
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts the metrics HTTP server on the specified port. It returns
// immediately; the server stops when ctx is cancelled or Shutdown is called.
func (m *Metrics) Listen(ctx context.Context, port int) {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server := m.server
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("Metrics listener failed", logger.ErrorField(err))
		}
	}()
	go func() {
		<-ctx.Done()
		m.Shutdown(context.Background())
	}()
}

// Shutdown stops the metrics listener if it is running.
func (m *Metrics) Shutdown(ctx context.Context) {
	if m.server == nil {
		return
	}
	m.log.Info("Stopping metrics listener")
	_ = m.server.Shutdown(ctx)
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.customMetrics = append(m.customMetrics, c)
	m.reg.MustRegister(c)
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	if m == nil || m.HTTPRequestsCounters == nil {
		return
	}
	m.httpMu.Lock()
	defer m.httpMu.Unlock()
	if _, ok := m.HTTPRequestsCounters[code]; !ok {
		m.HTTPRequestsCounters[code] = newTotalHTTPReqMetric(code)
		m.reg.MustRegister(m.HTTPRequestsCounters[code])
	}
	m.HTTPRequestsCounters[code].Inc()
}

func newTotalHTTPReqMetric(code int) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      fmt.Sprintf("total_%d_http_responses", code),
		Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
	})
}

// RunStarted counts a new pipeline run.
func (m *Metrics) RunStarted() {
	m.incJob(JobMetricTotal)
}

// RunFinished records the outcome and duration of a pipeline run.
// A context cancellation counts as cancelled rather than failed.
func (m *Metrics) RunFinished(elapsed time.Duration, err error) {
	if m == nil || m.JobMetricCounters == nil {
		return
	}
	switch {
	case err == nil:
		m.incJob(JobMetricTotalSuccess)
	case errors.Is(err, context.Canceled):
		m.incJob(JobMetricTotalCancelled)
	default:
		m.incJob(JobMetricTotalFailed)
	}
	m.RunDurationHistogram.Observe(elapsed.Seconds())
}

// TaskCompleted counts a finished task for the given agent role.
func (m *Metrics) TaskCompleted(agentRole string) {
	if m == nil || m.TaskCounter == nil {
		return
	}
	m.TaskCounter.WithLabelValues(agentRole).Inc()
}

// ToolCalled counts a tool invocation. Outcome is "ok" or "error".
func (m *Metrics) ToolCalled(tool string, err error) {
	if m == nil || m.ToolCallCounter == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ToolCallCounter.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) incJob(idx int) {
	if m == nil || m.JobMetricCounters == nil {
		return
	}
	m.JobMetricCounters[idx].Inc()
}

// HTTPMiddleware returns a Chi-compatible middleware that tracks HTTP metrics
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.TotalHTTPRequestsCounter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack is required for websocket upgrades behind this middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}
