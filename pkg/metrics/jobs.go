package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records queue worker outcomes per queue.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retry    *prometheus.CounterVec
}

// NewJobMetrics registers the queue job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of queue job executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success_total",
		Help: "Queue jobs that completed and were deleted.",
	}, []string{"queue"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure_total",
		Help: "Queue jobs that exhausted their attempts.",
	}, []string{"queue"})
	retry := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_retry_total",
		Help: "Queue jobs re-queued after a retryable failure.",
	}, []string{"queue"})
	reg.MustRegister(duration, success, failure, retry)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retry:    retry,
	}
}

// ObserveDuration records the execution time for the named queue.
func (j *JobMetrics) ObserveDuration(queue string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(queue)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named queue.
func (j *JobMetrics) IncSuccess(queue string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncFailure increments the terminal failure counter for the named queue.
func (j *JobMetrics) IncFailure(queue string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(queue)).Inc()
}

// IncRetry increments the retry counter for the named queue.
func (j *JobMetrics) IncRetry(queue string) {
	if j == nil || j.retry == nil {
		return
	}
	j.retry.WithLabelValues(normalizeLabel(queue)).Inc()
}

func normalizeLabel(queue string) string {
	if queue == "" {
		return "unknown"
	}
	return queue
}
