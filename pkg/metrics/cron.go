package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// JobMetrics tracks background job runs of the cron worker.
type JobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Cron job run time in seconds.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// Observe records one finished run. A nil err counts as success and moves the
// last-success gauge to finishedAt.
func (m *JobMetrics) Observe(job string, elapsed time.Duration, finishedAt time.Time, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, outcomeError).Inc()
		return
	}
	m.runs.WithLabelValues(job, outcomeOK).Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(finishedAt.Unix()))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
