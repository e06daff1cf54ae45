package ics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"cronograma/internal/model"
)

const productID = "-//cronograma//Cronograma de Formacao//PT"

// uidNamespace scopes event UIDs so re-exporting the same row yields the
// same UID and calendar clients update events in place.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:cronograma:tasks"))

// ExportOptions controls calendar export.
type ExportOptions struct {
	// Name is the calendar display name.
	Name string
	// Source identifies the workbook the tasks came from; it is part of
	// each event UID.
	Source string
	// Stamp is written as DTSTAMP. Zero means time.Now().
	Stamp time.Time
}

// EventUID returns the stable UID for a task.
func EventUID(source string, t model.Task) string {
	key := source + "\x00" + strconv.Itoa(t.RowIndex) + "\x00" + t.Topic
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@cronograma"
}

// BuildCalendar converts tasks to a VCALENDAR with one VEVENT per task.
// Completed tasks are marked with STATUS and a category.
func BuildCalendar(tasks []model.Task, opts ExportOptions) *ical.Calendar {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
	}

	for _, t := range tasks {
		ev := cal.AddEvent(EventUID(opts.Source, t))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(t.Start.UTC())
		ev.SetEndAt(t.End.UTC())
		ev.SetSummary(t.Label)
		ev.SetDescription(fmt.Sprintf("%s\nFormador: %s\nDuração: %sh\nSemana: %d",
			t.Topic, t.Trainer, strconv.FormatFloat(t.DurationHours, 'f', -1, 64), t.Week))
		if t.Trainer != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, t.Trainer)
		}
		if t.Completed {
			ev.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
			ev.SetProperty(ical.ComponentProperty(propCompleted), "TRUE")
		} else {
			ev.SetProperty(ical.ComponentPropertyStatus, "TENTATIVE")
		}
	}
	return cal
}

// Export writes the tasks as an iCalendar document.
func Export(w io.Writer, tasks []model.Task, opts ExportOptions) error {
	cal := BuildCalendar(tasks, opts)
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: write calendar: %w", err)
	}
	return nil
}
