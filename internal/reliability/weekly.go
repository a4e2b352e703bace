package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/incident-metrics/internal/domain"
)

// WeekSummary holds incident counts for one reporting week.
type WeekSummary struct {
	Week           int       `json:"week"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DateRangeLabel string    `json:"date_range_label"`
	OpenCount      int       `json:"open_count"`
	ClosedCount    int       `json:"closed_count"`
	TotalCount     int       `json:"total_count"`
}

// IsWeeklyCandidate reports whether an incident takes part in weekly reporting.
// Issues and incidents under financial follow-up (Potential recovery) are excluded.
func IsWeeklyCandidate(incident domain.Incident) bool {
	if incident.Classification != domain.ClassificationIncident {
		return false
	}
	return incident.FundStatus == nil || *incident.FundStatus != domain.FundStatusPotentialRecovery
}

// WeeklyReporter builds weekly incident summaries.
type WeeklyReporter struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
}

// NewWeeklyReporter creates a new weekly reporter. Week boundaries are computed
// in loc; nil means UTC.
func NewWeeklyReporter(repo Repository, loc *time.Location) *WeeklyReporter {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyReporter{
		repo:     repo,
		location: loc,
		now:      time.Now,
	}
}

// Weeks returns the reporting weeks of year.
func (r *WeeklyReporter) Weeks(year int) ([]Week, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return WeeksForYearIn(year, r.location), nil
}

// Summary returns per-week open, closed and total counts for year.
// Weeks starting after now are omitted.
func (r *WeeklyReporter) Summary(ctx context.Context, year int) ([]WeekSummary, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, r.location)
	to := from.AddDate(1, 0, 0)

	incidents, err := r.repo.ListWeeklyCandidates(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list weekly candidates: %w", err)
	}

	return summarizeWeeks(WeeksForYearIn(year, r.location), incidents, r.now().In(r.location)), nil
}

func summarizeWeeks(weeks []Week, incidents []domain.Incident, now time.Time) []WeekSummary {
	candidates := make([]domain.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if IsWeeklyCandidate(inc) {
			candidates = append(candidates, inc)
		}
	}

	summaries := make([]WeekSummary, 0, len(weeks))
	for _, week := range weeks {
		if week.Start.After(now) {
			continue
		}

		summary := WeekSummary{
			Week:           week.Number,
			StartDate:      week.Start,
			EndDate:        week.End,
			DateRangeLabel: week.Label(),
		}
		for _, inc := range candidates {
			date := inc.IncidentDate.In(week.Start.Location())
			if !week.Contains(date) {
				continue
			}
			summary.TotalCount++
			switch {
			case inc.Status.IsOpen():
				summary.OpenCount++
			case inc.Status.IsClosed():
				summary.ClosedCount++
			}
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

func validateYear(year int) error {
	if year < 1970 || year > 9999 {
		return ErrInvalidYear
	}
	return nil
}
