package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// Service implements incident intake.
//
// Saving an incident never recomputes MTTR or MTBF; run a recalculation after
// changing timestamps.
type Service struct {
	repo Repository
}

// NewService creates a new incident service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Title          string
	IncidentDate   time.Time
	StopBleedingAt *time.Time
	FundStatus     *domain.FundStatus
	Severity       domain.Severity
	Status         domain.IncidentStatus
	Classification domain.Classification
}

// UpdateIncidentInput holds the fields that may change on an incident.
// Nil fields are left untouched.
type UpdateIncidentInput struct {
	Title             *string
	IncidentDate      *time.Time
	StopBleedingAt    *time.Time
	ClearStopBleeding bool
	FundStatus        *domain.FundStatus
	ClearFundStatus   bool
	Severity          *domain.Severity
	Status            *domain.IncidentStatus
	Classification    *domain.Classification
}

// CreateIncident validates and stores a new incident.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	incident := &domain.Incident{
		Title:          input.Title,
		IncidentDate:   input.IncidentDate,
		StopBleedingAt: input.StopBleedingAt,
		FundStatus:     input.FundStatus,
		Severity:       input.Severity,
		Status:         input.Status,
		Classification: input.Classification,
	}
	if incident.Status == "" {
		incident.Status = domain.IncidentStatusOpen
	}
	if incident.Classification == "" {
		incident.Classification = domain.ClassificationIncident
	}

	if err := validateIncident(incident); err != nil {
		return nil, err
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return incident, nil
}

// GetIncident returns an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents returns a page of incidents and the total count matching filter.
func (s *Service) ListIncidents(ctx context.Context, filter ListFilter) ([]domain.Incident, int, error) {
	return s.repo.ListIncidentPage(ctx, filter)
}

// UpdateIncident applies input to an existing incident.
func (s *Service) UpdateIncident(ctx context.Context, id int64, input UpdateIncidentInput) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		incident.Title = *input.Title
	}
	if input.IncidentDate != nil {
		incident.IncidentDate = *input.IncidentDate
	}
	if input.ClearStopBleeding {
		incident.StopBleedingAt = nil
	} else if input.StopBleedingAt != nil {
		incident.StopBleedingAt = input.StopBleedingAt
	}
	if input.ClearFundStatus {
		incident.FundStatus = nil
	} else if input.FundStatus != nil {
		incident.FundStatus = input.FundStatus
	}
	if input.Severity != nil {
		incident.Severity = *input.Severity
	}
	if input.Status != nil {
		incident.Status = *input.Status
	}
	if input.Classification != nil {
		incident.Classification = *input.Classification
	}

	if err := validateIncident(incident); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

func validateIncident(incident *domain.Incident) error {
	if incident.IncidentDate.IsZero() {
		return ErrMissingIncidentDate
	}
	if incident.StopBleedingAt != nil && incident.StopBleedingAt.Before(incident.IncidentDate) {
		return ErrStopBeforeStart
	}
	if !incident.Severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, incident.Severity)
	}
	if incident.FundStatus != nil && !incident.FundStatus.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFundStatus, *incident.FundStatus)
	}
	if !incident.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, incident.Status)
	}
	if !incident.Classification.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidClassification, incident.Classification)
	}
	return nil
}
