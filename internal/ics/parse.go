package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "cronograma/internal/log"
)

// propCompleted marks events exported from completed tasks.
const propCompleted = "X-CRONOGRAMA-COMPLETED"

// ParsedEvent is the subset of a VEVENT written by Export.
type ParsedEvent struct {
	UID       string
	Summary   string
	Category  string
	Status    string
	Completed bool
	Start     time.Time
	End       time.Time
}

// ParseICS parses a calendar produced by Export. Events that cannot be read
// are logged and skipped; the rest are returned in document order.
func ParseICS(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		out.Category = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty(propCompleted)); p != nil {
		out.Completed = strings.EqualFold(strings.TrimSpace(p.Value), "TRUE")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = end
	return out, nil
}
