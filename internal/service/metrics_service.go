package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/session-archiver/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the lifecycle job and its tools.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	runs                *prometheus.CounterVec
	runDuration         prometheus.Histogram
	sessionsArchived    prometheus.Counter
	enrollmentsArchived prometheus.Counter
	sessionFailures     prometheus.Counter
	lastSuccess         prometheus.Gauge
	duplicatesRemoved   prometheus.Counter
	enrollmentsRestored prometheus.Counter
	countersFixed       prometheus.Counter
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec

	runCount     uint64
	failedRuns   uint64
	lastRunNanos int64
}

// NewMetricsService registers the archiver collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archiver_runs_total",
		Help: "Lifecycle job runs by outcome",
	}, []string{"outcome"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "archiver_run_duration_seconds",
		Help:    "Duration of lifecycle job runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	})

	sessionsArchived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_sessions_archived_total",
		Help: "Sessions moved to the historical tables",
	})

	enrollmentsArchived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_enrollments_archived_total",
		Help: "Enrollments copied into historical_enrollments",
	})

	sessionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_session_failures_total",
		Help: "Session archival transactions rolled back",
	})

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "archiver_last_success_timestamp_seconds",
		Help: "Unix time of the last run without session failures",
	})

	duplicatesRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_duplicate_enrollments_removed_total",
		Help: "Duplicate live enrollments deleted by the resolver",
	})

	enrollmentsRestored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_enrollments_restored_total",
		Help: "Historical enrollments moved back to the live table",
	})

	countersFixed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archiver_session_counters_fixed_total",
		Help: "Session enrolled_count values corrected by reconciliation",
	})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of ops endpoint requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of ops endpoint requests",
	}, []string{"method", "path", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(runs, runDuration, sessionsArchived, enrollmentsArchived, sessionFailures, lastSuccess,
		duplicatesRemoved, enrollmentsRestored, countersFixed, requestDuration, requestTotal, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runs:                runs,
		runDuration:         runDuration,
		sessionsArchived:    sessionsArchived,
		enrollmentsArchived: enrollmentsArchived,
		sessionFailures:     sessionFailures,
		lastSuccess:         lastSuccess,
		duplicatesRemoved:   duplicatesRemoved,
		enrollmentsRestored: enrollmentsRestored,
		countersFixed:       countersFixed,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveRun records the outcome of one lifecycle run.
func (m *MetricsService) ObserveRun(report dto.RunReport, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case report.HasFailures():
		outcome = "partial"
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(report.Duration.Seconds())
	m.sessionsArchived.Add(float64(report.ArchivedSessions))
	m.enrollmentsArchived.Add(float64(report.ArchivedEnrollments))
	m.sessionFailures.Add(float64(len(report.Failed)))
	atomic.AddUint64(&m.runCount, 1)
	if outcome != "success" {
		atomic.AddUint64(&m.failedRuns, 1)
		return
	}
	finished := report.StartedAt.Add(report.Duration)
	m.lastSuccess.Set(float64(finished.Unix()))
	atomic.StoreInt64(&m.lastRunNanos, finished.UnixNano())
}

// ObserveDedupe records resolver deletions.
func (m *MetricsService) ObserveDedupe(report dto.DedupeReport) {
	if m == nil || report.DryRun {
		return
	}
	m.duplicatesRemoved.Add(float64(report.Deleted))
}

// ObserveRestore records restored enrollments.
func (m *MetricsService) ObserveRestore(report dto.RestoreReport) {
	if m == nil || report.DryRun {
		return
	}
	m.enrollmentsRestored.Add(float64(report.Restored))
}

// ObserveReconcile records corrected counters.
func (m *MetricsService) ObserveReconcile(report dto.ReconcileReport) {
	if m == nil || report.DryRun {
		return
	}
	m.countersFixed.Add(float64(report.Fixed))
}

// ObserveHTTPRequest records one request served by the daemon's ops endpoints.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// Snapshot is a lightweight view used by the readiness endpoint.
type Snapshot struct {
	Runs        uint64     `json:"runs"`
	FailedRuns  uint64     `json:"failed_runs"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
}

// Snapshot returns aggregated run counters.
func (m *MetricsService) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		Runs:       atomic.LoadUint64(&m.runCount),
		FailedRuns: atomic.LoadUint64(&m.failedRuns),
	}
	if nanos := atomic.LoadInt64(&m.lastRunNanos); nanos > 0 {
		last := time.Unix(0, nanos).UTC()
		snap.LastSuccess = &last
	}
	return snap
}
