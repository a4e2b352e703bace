package reliability

import "errors"

// Recalculation errors.
var (
	ErrLoadIncidents           = errors.New("load incidents")
	ErrMissingIncidentDate     = errors.New("incident date is required")
	ErrRecalculationInProgress = errors.New("recalculation already in progress")
)

// Report errors.
var (
	ErrInvalidYear = errors.New("year must be between 1970 and 9999")
)
