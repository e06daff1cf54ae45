package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which field of a Value is meaningful.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a single spreadsheet cell as read from the workbook, before any
// coercion. The zero Value is an empty (null) cell.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Bool   bool
}

func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }
func Text(s string) Value    { return Value{Kind: KindText, Text: s} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

// IsNull reports whether the cell carries no value. Whitespace-only text and
// NaN numbers count as null, matching how the sheet is filled in by hand.
func (v Value) IsNull() bool {
	switch v.Kind {
	case KindEmpty:
		return true
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	case KindNumber:
		return math.IsNaN(v.Number)
	default:
		return false
	}
}

// Float coerces the value to a float64. Text is parsed after trimming and
// accepts a decimal comma ("7,5").
func (v Value) Float() (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Number, nil
	case KindText:
		s := strings.ReplaceAll(strings.TrimSpace(v.Text), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.Text)
		}
		return f, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("empty value")
	}
}

// Truthy coerces the value to a completion flag.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0 && !math.IsNaN(v.Number)
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.Text)) {
		case "1", "true", "verdadeiro", "sim", "yes", "x", "✓", "✅":
			return true
		}
		return false
	default:
		return false
	}
}

// String renders the value as display text. Whole numbers drop the decimal
// part so a week read as 10.0 prints as "10".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// RawRow is one data line of the schedule workbook. Index is the 0-based
// position among data rows (the header is not counted) and is the only
// identity a row has.
type RawRow struct {
	Index int

	Week          Value
	DurationHours Value
	Topic         Value
	Trainer       Value

	Completed bool
}

// Task is one chart-ready unit of work derived from a RawRow.
// Tasks are built once per render pass and never mutated.
type Task struct {
	// RowIndex points back at the RawRow this task came from.
	RowIndex int

	Topic         string
	Trainer       string
	DurationHours float64
	Week          int
	Completed     bool

	// Start is the Monday of Week; End is Start plus the derived day span,
	// which may be fractional.
	Start time.Time
	End   time.Time

	Label    string
	ColorKey string
	Opacity  float64
}

// Days returns the bar width in (possibly fractional) days.
func (t Task) Days() float64 {
	return t.End.Sub(t.Start).Hours() / 24
}

// Diagnostic records why a row did not produce a Task.
type Diagnostic struct {
	RowIndex int    `json:"row"`
	Reason   string `json:"reason"`
}

// Message is the user-facing form of the diagnostic.
func (d Diagnostic) Message() string {
	return fmt.Sprintf("row %d skipped: %s", d.RowIndex, d.Reason)
}
