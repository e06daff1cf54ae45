package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWeek     = errors.New("invalid week")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrSkipped         = errors.New("missing required field")
	ErrEmptySchedule   = errors.New("no valid tasks")
)

// RowError ties a row-local failure to the row that produced it.
type RowError struct {
	Index int
	Kind  error
	Msg   string
}

func (e *RowError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("row %d: %s", e.Index, e.Kind.Error())
	}
	return fmt.Sprintf("row %d: %s: %s", e.Index, e.Kind.Error(), e.Msg)
}

func (e *RowError) Unwrap() error { return e.Kind }

// Reason is the error text without the row prefix, as shown in diagnostics.
func (e *RowError) Reason() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func rowErrorf(index int, kind error, format string, args ...any) error {
	return &RowError{Index: index, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
