package reliability

import "time"

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last representable instant of t's day.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// daysBetween returns the signed number of calendar days from a to b.
// Civil dates are compared in UTC so DST transitions never shorten a day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

// inclusiveDays counts both endpoints: the same day yields 1.
func inclusiveDays(a, b time.Time) int {
	n := daysBetween(startOfDay(a), startOfDay(b))
	if n < 0 {
		n = -n
	}
	return n + 1
}
