package chart

import (
	"time"

	"github.com/teambition/rrule-go"
)

// GridInterval is the spacing of vertical gridlines and date ticks.
const GridInterval = 7 * 24 * time.Hour

// weeklyTicks returns every Monday in [start, end] using a weekly
// recurrence rule, so ticks line up with the week starts of the bars.
func weeklyTicks(start, end time.Time) ([]time.Time, error) {
	if end.Before(start) {
		return nil, nil
	}
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if first.Before(start) {
		first = first.AddDate(0, 0, 1)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  1,
		Byweekday: []rrule.Weekday{rrule.MO},
		Dtstart:   first,
		Until:     end,
	})
	if err != nil {
		return nil, err
	}
	return r.All(), nil
}
