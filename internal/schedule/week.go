package schedule

import (
	"fmt"
	"time"
)

// WeeksInYear returns the number of ISO weeks in year (52 or 53).
// December 28th always falls in the last ISO week of its year.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// ResolveWeek returns the Monday (00:00 UTC) that begins ISO week `week` of
// `year`. Week 1 is the week containing the year's first Thursday, so it may
// start in the previous calendar year (week 1 of 2025 starts 2024-12-30).
func ResolveWeek(week, year int) (time.Time, error) {
	if year <= 0 {
		return time.Time{}, fmt.Errorf("%w: year %d", ErrInvalidWeek, year)
	}
	if week <= 0 {
		return time.Time{}, fmt.Errorf("%w: week %d must be positive", ErrInvalidWeek, week)
	}
	if max := WeeksInYear(year); week > max {
		return time.Time{}, fmt.Errorf("%w: week %d exceeds %d weeks in %d", ErrInvalidWeek, week, max, year)
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (week-1)*7), nil
}
