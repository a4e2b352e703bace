package domain

import "time"

// FundStatus represents the financial impact classification of an incident.
type FundStatus string

// Fund statuses.
const (
	FundStatusNonFundLoss       FundStatus = "Non fundLoss"
	FundStatusConfirmedLoss     FundStatus = "Confirmed loss"
	FundStatusPotentialRecovery FundStatus = "Potential recovery"
)

// IsValid checks if the fund status is valid.
func (s FundStatus) IsValid() bool {
	switch s {
	case FundStatusNonFundLoss, FundStatusConfirmedLoss, FundStatusPotentialRecovery:
		return true
	}
	return false
}

// MeasuredInDays reports whether recovery time for this fund status is tracked
// in calendar days instead of minutes. A nil status is measured in minutes.
func (s *FundStatus) MeasuredInDays() bool {
	if s == nil {
		return false
	}
	return *s == FundStatusConfirmedLoss || *s == FundStatusPotentialRecovery
}

// Severity represents the severity level of an incident.
type Severity string

// Severity levels.
const (
	SeverityP1          Severity = "P1"
	SeverityP2          Severity = "P2"
	SeverityP3          Severity = "P3"
	SeverityP4          Severity = "P4"
	SeverityG           Severity = "G"
	SeverityX1          Severity = "X1"
	SeverityX2          Severity = "X2"
	SeverityX3          Severity = "X3"
	SeverityX4          Severity = "X4"
	SeverityNonIncident Severity = "Non Incident"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityP1, SeverityP2, SeverityP3, SeverityP4, SeverityG,
		SeverityX1, SeverityX2, SeverityX3, SeverityX4, SeverityNonIncident:
		return true
	}
	return false
}

// IncidentStatus represents the lifecycle status of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen         IncidentStatus = "Open"
	IncidentStatusInProgress   IncidentStatus = "In progress"
	IncidentStatusFinalization IncidentStatus = "Finalization"
	IncidentStatusCompleted    IncidentStatus = "Completed"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInProgress, IncidentStatusFinalization, IncidentStatusCompleted:
		return true
	}
	return false
}

// IsOpen reports whether the status counts as open in weekly reporting.
func (s IncidentStatus) IsOpen() bool {
	return s == IncidentStatusOpen || s == IncidentStatusInProgress || s == IncidentStatusFinalization
}

// IsClosed reports whether the status counts as closed in weekly reporting.
func (s IncidentStatus) IsClosed() bool {
	return s == IncidentStatusCompleted
}

// Classification distinguishes incidents from issues.
type Classification string

// Classifications.
const (
	ClassificationIncident Classification = "Incident"
	ClassificationIssue    Classification = "Issue"
)

// IsValid checks if the classification is valid.
func (c Classification) IsValid() bool {
	return c == ClassificationIncident || c == ClassificationIssue
}

// Incident represents a tracked incident together with its derived reliability metrics.
type Incident struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	IncidentDate   time.Time      `json:"incident_date"`
	StopBleedingAt *time.Time     `json:"stop_bleeding_at"`
	FundStatus     *FundStatus    `json:"fund_status"`
	Severity       Severity       `json:"severity"`
	Status         IncidentStatus `json:"incident_status"`
	Classification Classification `json:"classification"`
	MTTR           *MTTR          `json:"mttr"`
	MTBF           *int           `json:"mtbf"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
