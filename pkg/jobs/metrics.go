package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments job execution per queue.
type Metrics struct {
	Jobs     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Stalled  *prometheus.CounterVec

	// Recipients is observed by handlers that write to many users at once.
	Recipients *prometheus.HistogramVec
}

// ObserveRecipients records how many users a job wrote to, m may be nil.
func (m *Metrics) ObserveRecipients(queue string, n int) {
	if m == nil {
		return
	}

	m.Recipients.WithLabelValues(queue).Observe(float64(n))
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Jobs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanout_jobs_total",
				Help: "Total number of finished job attempts",
			},
			[]string{"queue", "status"}, // status: completed/retried/failed
		),
		Duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fanout_job_duration_seconds",
				Help:    "Duration of job attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		Stalled: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanout_jobs_stalled_total",
				Help: "Total number of jobs handed back after their lease lapsed",
			},
			[]string{"queue"},
		),
		Recipients: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fanout_recipients",
				Help:    "Number of users a single job wrote to",
				Buckets: prometheus.ExponentialBuckets(1, 10, 7),
			},
			[]string{"queue"},
		),
	}
}
