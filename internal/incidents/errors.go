package incidents

import "errors"

// Incident errors.
var (
	ErrIncidentNotFound      = errors.New("incident not found")
	ErrInvalidSeverity       = errors.New("invalid severity")
	ErrInvalidFundStatus     = errors.New("invalid fund status")
	ErrInvalidStatus         = errors.New("invalid incident status")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrMissingIncidentDate   = errors.New("incident date is required")
	ErrStopBeforeStart       = errors.New("stop bleeding time is before incident date")
)
