package notifications

import (
	"time"

	"github.com/bissquit/incident-metrics/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Run summaries delivered, by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to deliver a run summary",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

func recordSent(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

func recordSendDuration(channel string, d time.Duration) {
	notificationSendDuration.WithLabelValues(channel).Observe(d.Seconds())
}
