package schedule

import (
	"math"
	"strings"
	"time"

	"cronograma/internal/model"
)

// maxSpanDays is the longest bar a time.Duration can hold.
var maxSpanDays = float64(math.MaxInt64) / float64(24*time.Hour)

// Normalized is a RawRow whose fields have been coerced and checked but
// which has not yet been placed on the calendar.
type Normalized struct {
	Index         int
	Week          int
	DurationHours float64
	Topic         string
	Trainer       string
	Completed     bool
}

// Normalize validates and coerces one row. Rows missing a week or a topic
// come back as ErrSkipped; an unusable duration is ErrInvalidDuration. All
// errors are *RowError carrying the row index.
func Normalize(row model.RawRow) (Normalized, error) {
	if row.Week.IsNull() {
		return Normalized{}, rowErrorf(row.Index, ErrSkipped, "week")
	}
	if row.Topic.IsNull() {
		return Normalized{}, rowErrorf(row.Index, ErrSkipped, "topic")
	}

	wf, err := row.Week.Float()
	if err != nil {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidWeek, "%v", err)
	}
	if math.IsInf(wf, 0) || math.Abs(wf) > math.MaxInt32 {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidWeek, "week %v out of range", wf)
	}

	if row.DurationHours.IsNull() {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidDuration, "missing duration")
	}
	hours, err := row.DurationHours.Float()
	if err != nil {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidDuration, "%v", err)
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidDuration, "duration %v is not finite", hours)
	}
	if SpanDays(hours) >= maxSpanDays {
		return Normalized{}, rowErrorf(row.Index, ErrInvalidDuration, "duration %v out of range", hours)
	}

	trainer := ""
	if !row.Trainer.IsNull() {
		trainer = strings.TrimSpace(row.Trainer.String())
	}

	return Normalized{
		Index:         row.Index,
		Week:          int(math.Trunc(wf)),
		DurationHours: hours,
		Topic:         strings.TrimSpace(row.Topic.String()),
		Trainer:       trainer,
		Completed:     row.Completed,
	}, nil
}
