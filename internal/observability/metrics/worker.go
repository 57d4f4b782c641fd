package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	sweepTotal    *prometheus.CounterVec
	sweepRemoved  *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	eventTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "janitor",
			Name:      "sweeps_total",
			Help:      "Total session index sweeps by status.",
		},
		[]string{"service", "status"},
	)
	sweepRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "janitor",
			Name:      "stale_sessions_removed_total",
			Help:      "Total stale session index entries removed by sweeps.",
		},
		[]string{"service"},
	)
	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "janitor",
			Name:      "sweep_duration_seconds",
			Help:      "Session index sweep duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "janitor",
			Name:      "session_events_total",
			Help:      "Total session-processed events consumed by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(sweepTotal, sweepRemoved, sweepDuration, eventTotal)

	return &WorkerMetrics{
		registry:      registry,
		sweepTotal:    sweepTotal,
		sweepRemoved:  sweepRemoved,
		sweepDuration: sweepDuration,
		eventTotal:    eventTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) FinishSweep(service string, removed int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.sweepTotal.WithLabelValues(service, status).Inc()
	m.sweepDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if removed > 0 {
		m.sweepRemoved.WithLabelValues(service).Add(float64(removed))
	}
}

func (m *WorkerMetrics) RecordSessionEvent(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventTotal.WithLabelValues(service, status).Inc()
}
