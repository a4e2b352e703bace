package reliability

import (
	"cmp"
	"slices"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// CompareIncidents orders incidents by (incident_date, id).
func CompareIncidents(a, b domain.Incident) int {
	if c := a.IncidentDate.Compare(b.IncidentDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortIncidents sorts incidents in place by (incident_date, id).
func SortIncidents(incidents []domain.Incident) {
	slices.SortStableFunc(incidents, CompareIncidents)
}

// ComputeMTBF returns the days between the current incident and its immediate
// predecessor in the same calendar year, counting both days.
//
// previous must be the incident right before current in (incident_date, id) order,
// or nil. A predecessor from a different year is ignored and the distance is
// measured from January 1 instead.
func ComputeMTBF(previous *domain.Incident, current domain.Incident) int {
	year := current.IncidentDate.Year()
	if previous != nil && previous.IncidentDate.Year() == year {
		return inclusiveDays(current.IncidentDate, previous.IncidentDate)
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, current.IncidentDate.Location())
	return inclusiveDays(current.IncidentDate, jan1)
}

// MTBFSequence folds ComputeMTBF over incidents already sorted by (incident_date, id)
// and returns the MTBF of each incident, index-aligned with the input.
func MTBFSequence(incidents []domain.Incident) []int {
	out := make([]int, len(incidents))
	var previous *domain.Incident
	for i := range incidents {
		out[i] = ComputeMTBF(previous, incidents[i])
		previous = &incidents[i]
	}
	return out
}
