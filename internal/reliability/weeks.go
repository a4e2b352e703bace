package reliability

import "time"

// maxWeeks caps bucketing regardless of the calendar.
const maxWeeks = 53

// Week is a Friday-to-Thursday reporting week. Week 1 starts on January 1
// and ends on the first Thursday, so it may be shorter than seven days.
type Week struct {
	Number int       `json:"week"`
	Start  time.Time `json:"start_date"`
	End    time.Time `json:"end_date"`
}

// WeeksForYear partitions year into reporting weeks using UTC dates.
func WeeksForYear(year int) []Week {
	return WeeksForYearIn(year, time.UTC)
}

// WeeksForYearIn partitions year into reporting weeks with dates in loc.
func WeeksForYearIn(year int, loc *time.Location) []Week {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	toThursday := (int(time.Thursday) - int(start.Weekday()) + 7) % 7
	end := start.AddDate(0, 0, toThursday)

	weeks := make([]Week, 0, maxWeeks)
	weeks = append(weeks, Week{Number: 1, Start: start, End: end})

	for n := 2; n <= maxWeeks; n++ {
		friday := end.AddDate(0, 0, 1)
		if friday.Year() != year {
			break
		}
		end = friday.AddDate(0, 0, 6)
		weeks = append(weeks, Week{Number: n, Start: friday, End: end})
	}

	return weeks
}

// Contains reports whether t falls within the week, both days inclusive.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(startOfDay(w.Start)) && !t.After(endOfDay(w.End))
}

// Label renders the week range, e.g. "Jan 03 - Jan 09".
func (w Week) Label() string {
	return w.Start.Format("Jan 02") + " - " + w.End.Format("Jan 02")
}
