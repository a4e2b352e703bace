package reliability

import (
	"time"

	"github.com/bissquit/incident-metrics/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recalculationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "recalculation",
			Name:      "runs_total",
			Help:      "Total recalculation runs by outcome",
		},
		[]string{"outcome"},
	)

	recalculationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "recalculation",
			Name:      "updated_total",
			Help:      "Total incidents whose metric changed, by metric",
		},
		[]string{"metric"},
	)

	recalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "recalculation",
			Name:      "duration_seconds",
			Help:      "Time to run a full recalculation pass",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	recalculationLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "recalculation",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful non-dry recalculation",
		},
	)
)

func recordRun(outcome string, duration time.Duration) {
	recalculationRuns.WithLabelValues(outcome).Inc()
	recalculationDuration.Observe(duration.Seconds())
}

// recordUpdates is only called for runs that actually persisted.
func recordUpdates(mttr, mtbf int) {
	recalculationUpdates.WithLabelValues("mttr").Add(float64(mttr))
	recalculationUpdates.WithLabelValues("mtbf").Add(float64(mtbf))
	recalculationLastSuccess.SetToCurrentTime()
}
