package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewisedginton/itinerary_planner/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomHighPort() int {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return r.Intn(16384) + 49152
}

func TestMetrics_Listen(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())
	port := getRandomHighPort()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Listen(ctx, port)

	for i := 0; i < 5; i++ {
		m.IncrementHTTPResponseCounter(200)
		m.IncrementHTTPResponseCounter(404)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)

	assert.Contains(t, body, "itinerary_total_200_http_responses 5")
	assert.Contains(t, body, "itinerary_total_404_http_responses 5")
	assert.Contains(t, body, "# HELP itinerary_total_404_http_responses Total Not Found HTTP responses returned")

	resp, err := http.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	require.Eventually(t, func() bool {
		_, err := http.Get(url + "/metrics")
		return err != nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestMetrics_SetCustomMetrics(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())

	counter := prometheus.NewCounter(prometheus.CounterOpts{Subsystem: "test", Name: "foo1", Help: "foo 1 help"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Subsystem: "test", Name: "foo2", Help: "foo 2 help"})
	m.AddCustomMetric(counter)
	m.AddCustomMetric(gauge)

	counter.Inc()
	gauge.Set(1.234)

	expected := `# HELP test_foo1 foo 1 help
# TYPE test_foo1 counter
test_foo1 1
# HELP test_foo2 foo 2 help
# TYPE test_foo2 gauge
test_foo2 1.234
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_foo1", "test_foo2"))
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/error" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("error"))
			return
		}
		_, _ = w.Write([]byte("success"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/success", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/error", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.TotalHTTPRequestsCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsCounters[200]))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsCounters[500]))
}

func TestHTTPMiddleware_DisabledPassesThrough(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	m.HTTPMiddleware()(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)

	var nilMetrics *Metrics
	called = false
	nilMetrics.HTTPMiddleware()(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures custom status code", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: recorder, statusCode: 200}
		rw.WriteHeader(404)
		assert.Equal(t, 404, rw.statusCode)
		assert.Equal(t, 404, recorder.Code)
	})

	t.Run("defaults to 200 if WriteHeader not called", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: 200}
		_, _ = rw.Write([]byte("test"))
		assert.Equal(t, 200, rw.statusCode)
	})

	t.Run("hijack unsupported by recorder", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: 200}
		_, _, err := rw.Hijack()
		assert.Error(t, err)
	})
}

func TestRunMetrics(t *testing.T) {
	m := NewMetrics(false, true, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		m.RunStarted()
	}
	m.RunFinished(12*time.Second, nil)
	m.RunFinished(3*time.Second, errors.New("llm unavailable"))
	m.RunFinished(time.Second, fmt.Errorf("kickoff: %w", context.Canceled))

	assert.Equal(t, float64(3), testutil.ToFloat64(m.JobMetricCounters[JobMetricTotal]))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobMetricCounters[JobMetricTotalSuccess]))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobMetricCounters[JobMetricTotalFailed]))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobMetricCounters[JobMetricTotalCancelled]))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDurationHistogram))
}

func TestTaskAndToolCounters(t *testing.T) {
	m := NewMetrics(false, true, logger.NewNopLogger())

	m.TaskCompleted("Tour and travel agent")
	m.TaskCompleted("Itinerary Planner")
	m.TaskCompleted("Itinerary Planner")
	m.ToolCalled("serper_search", nil)
	m.ToolCalled("serper_search", errors.New("rate limited"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.TaskCounter.WithLabelValues("Itinerary Planner")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallCounter.WithLabelValues("serper_search", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallCounter.WithLabelValues("serper_search", "error")))
}

func TestNilMetricsHelpersAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted()
		m.RunFinished(time.Second, nil)
		m.TaskCompleted("x")
		m.ToolCalled("y", nil)
		m.IncrementHTTPResponseCounter(200)
	})
}
