// Package reliability computes MTTR and MTBF for incidents and builds weekly incident reports.
package reliability

import (
	"context"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// Repository is the storage contract the metrics engine depends on.
type Repository interface {
	// ListIncidents returns incidents ordered by (incident_date, id).
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	// SaveMetrics persists the derived fields of a single incident.
	SaveMetrics(ctx context.Context, incidentID int64, mttr *domain.MTTR, mtbf *int, opts SaveOptions) error
	// ListWeeklyCandidates returns incidents eligible for weekly reporting with
	// incident_date in [from, to).
	ListWeeklyCandidates(ctx context.Context, from, to time.Time) ([]domain.Incident, error)
}

// IncidentFilter holds filter options for loading incidents.
type IncidentFilter struct {
	Year *int
}

// SaveOptions controls side effects of a metrics save.
// The zero value is a quiet save: no notification, no audit record.
type SaveOptions struct {
	Notify bool
	Audit  bool
}

// RunNotifier is told about finished, non-dry recalculation runs.
type RunNotifier interface {
	NotifyRecalculation(ctx context.Context, result *Result) error
}
