package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	JobsCompleted       *prometheus.CounterVec
	JobsRetried         *prometheus.CounterVec
	JobsFailed          *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	BufferDepth         *prometheus.GaugeVec
	NotificationsStored *prometheus.CounterVec
	RemindersEnqueued   prometheus.Counter

	reg prometheus.Registerer
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Jobs whose handler succeeded.",
		}, []string{"kind"}),

		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_retried_total",
			Help: "Failed attempts rescheduled with backoff.",
		}, []string{"kind"}),

		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Jobs moved to failed (attempts exhausted or permanent error).",
		}, []string{"kind"}),

		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Handler run time of successful attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		BufferDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_buffer_depth",
			Help: "Claimed jobs waiting for a free worker.",
		}, []string{"kind"}),

		NotificationsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_stored_total",
			Help: "Notification records appended to the manager store.",
		}, []string{"type"}),

		RemindersEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_enqueued_total",
			Help: "Missing-submission reminders queued by the scanner.",
		}),

		reg: reg,
	}

	reg.MustRegister(
		m.JobsCompleted,
		m.JobsRetried,
		m.JobsFailed,
		m.JobDuration,
		m.BufferDepth,
		m.NotificationsStored,
		m.RemindersEnqueued,
	)

	return m
}

// TrackStoreSize registers notification_store_size, sampled from size on
// every scrape.
func (m *Metrics) TrackStoreSize(size func(ctx context.Context) (int, error)) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "notification_store_size",
		Help: "Records currently held by the notification store.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := size(ctx)
		if err != nil {
			return -1
		}
		return float64(n)
	}))
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so worker.go stays import-free.
func (m *Metrics) WorkerHooks() (
	onCompleted func(domain.JobKind, time.Duration),
	onRetry func(domain.JobKind),
	onFailed func(domain.JobKind),
) {
	onCompleted = func(k domain.JobKind, latency time.Duration) {
		m.JobsCompleted.WithLabelValues(string(k)).Inc()
		m.JobDuration.WithLabelValues(string(k)).Observe(latency.Seconds())
	}
	onRetry = func(k domain.JobKind) {
		m.JobsRetried.WithLabelValues(string(k)).Inc()
	}
	onFailed = func(k domain.JobKind) {
		m.JobsFailed.WithLabelValues(string(k)).Inc()
	}
	return
}

func (m *Metrics) OnBufferDepth(k domain.JobKind, depth int) {
	m.BufferDepth.WithLabelValues(string(k)).Set(float64(depth))
}

func (m *Metrics) OnNotificationStored(t domain.NotificationType) {
	m.NotificationsStored.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) OnRemindersEnqueued(n int) {
	m.RemindersEnqueued.Add(float64(n))
}
