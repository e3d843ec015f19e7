package observability

import (
	"io"
	"net/http"
	"sync"
	"time"
)

// Metrics is a small Prometheus text-format registry. A nil *Metrics is valid
// and records nothing, so callers never need to check whether metrics are on.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	apiReqTotal  *Counter
	apiReqError  *Counter
	sweepRuns    *CounterVec
	sweepPlans   *CounterVec
	sweepLatency *HistogramVec
	storageOps   *CounterVec
	weather      *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry, or returns nil when disabled.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("travelog_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"travelog_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("travelog_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("travelog_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("travelog_api_requests_error_total", "API requests answered with a 5xx status."),
		sweepRuns:   NewCounterVec("travelog_sweep_runs_total", "Plan status sweeps by trigger/status.", []string{"trigger", "status"}),
		sweepPlans:  NewCounterVec("travelog_sweep_plans_total", "Plans handled by the sweep by outcome.", []string{"outcome"}),
		sweepLatency: NewHistogramVec(
			"travelog_sweep_duration_seconds",
			"Plan status sweep duration in seconds.",
			[]string{"trigger"},
			[]float64{0.1, 0.5, 1, 5, 15, 60, 300},
		),
		storageOps: NewCounterVec("travelog_storage_ops_total", "Object storage operations by op/status.", []string{"op", "status"}),
		weather:    NewCounterVec("travelog_weather_lookups_total", "Weather lookups by status.", []string{"status"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.apiReqTotal,
		m.apiReqError,
		m.sweepRuns,
		m.sweepPlans,
		m.sweepLatency,
		m.storageOps,
		m.weather,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveSweep records one sweep run and its per-plan outcomes.
func (m *Metrics) ObserveSweep(trigger string, started, completed, failed int, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	m.sweepRuns.Inc(trigger, status)
	m.sweepPlans.Add(float64(started), "started")
	m.sweepPlans.Add(float64(completed), "completed")
	m.sweepPlans.Add(float64(failed), "failed")
	m.sweepLatency.Observe(dur.Seconds(), trigger)
}

func (m *Metrics) IncStorageOp(op string, err error) {
	if m == nil {
		return
	}
	m.storageOps.Inc(op, statusOf(err))
}

func (m *Metrics) IncWeatherLookup(err error) {
	if m == nil {
		return
	}
	m.weather.Inc(statusOf(err))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
