package schedule

import (
	"strings"
	"time"

	"cronograma/internal/model"
)

const (
	// HoursPerDay is the working-day length used to turn hours into a span.
	HoursPerDay = 8

	// DoneColorKey groups every completed task under one legend entry.
	DoneColorKey = "Done"

	// DoneMarker prefixes the label of a completed task.
	DoneMarker = "✅ "

	doneOpacity    = 0.5
	pendingOpacity = 1.0
)

// SpanDays converts hours into a bar width in days: hours/8, but never less
// than one day. Fractional spans are kept as-is (10h -> 1.25 days).
func SpanDays(hours float64) float64 {
	days := hours / HoursPerDay
	if days < 1 {
		return 1
	}
	return days
}

// Derive places a normalized row on the calendar of the given year.
func Derive(n Normalized, year int) (model.Task, error) {
	start, err := ResolveWeek(n.Week, year)
	if err != nil {
		return model.Task{}, &RowError{Index: n.Index, Kind: ErrInvalidWeek, Msg: strings.TrimPrefix(err.Error(), ErrInvalidWeek.Error()+": ")}
	}

	days := SpanDays(n.DurationHours)
	end := start.Add(time.Duration(days * float64(24*time.Hour)))

	t := model.Task{
		RowIndex:      n.Index,
		Topic:         n.Topic,
		Trainer:       n.Trainer,
		DurationHours: n.DurationHours,
		Week:          n.Week,
		Completed:     n.Completed,
		Start:         start,
		End:           end,
		Label:         n.Topic + " (" + n.Trainer + ")",
		ColorKey:      n.Trainer,
		Opacity:       pendingOpacity,
	}
	if n.Completed {
		t.Label = DoneMarker + t.Label
		t.ColorKey = DoneColorKey
		t.Opacity = doneOpacity
	}
	return t, nil
}
