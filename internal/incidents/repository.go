// Package incidents provides intake and lookup of incident records.
package incidents

import (
	"context"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// Repository defines the interface for incident storage.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	ListIncidentPage(ctx context.Context, filter ListFilter) ([]domain.Incident, int, error)
	UpdateIncident(ctx context.Context, incident *domain.Incident) error
}

// ListFilter holds filter options for listing incidents.
type ListFilter struct {
	Year           *int
	Classification *domain.Classification
	Status         *domain.IncidentStatus
	Limit          int
	Offset         int
}
