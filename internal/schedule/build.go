package schedule

import (
	"cmp"
	"errors"
	"slices"

	appLog "cronograma/internal/log"
	"cronograma/internal/model"
)

// DefaultYear is the calendar year week numbers are resolved against.
const DefaultYear = 2025

// Options controls a Build pass.
type Options struct {
	// Year used to resolve week numbers. Zero means DefaultYear.
	Year int
}

// Result is the outcome of one Build pass.
type Result struct {
	// Tasks sorted by (Start, Topic, RowIndex).
	Tasks []model.Task
	// Skipped lists every row that did not produce a task, in row order.
	Skipped []model.Diagnostic
}

// Outcome is the tagged per-row result: exactly one of Task or Skip is set.
type Outcome struct {
	Task *model.Task
	Skip *model.Diagnostic
}

// Evaluate runs Normalize and Derive for a single row. It never fails;
// any error becomes a Skip diagnostic.
func Evaluate(row model.RawRow, year int) Outcome {
	n, err := Normalize(row)
	if err != nil {
		return skipOutcome(row.Index, err)
	}
	task, err := Derive(n, year)
	if err != nil {
		return skipOutcome(row.Index, err)
	}
	return Outcome{Task: &task}
}

func skipOutcome(index int, err error) Outcome {
	reason := err.Error()
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		reason = rowErr.Reason()
	}
	return Outcome{Skip: &model.Diagnostic{RowIndex: index, Reason: reason}}
}

// Build evaluates every row and returns the sorted tasks with diagnostics.
// When no row survives it returns ErrEmptySchedule together with the
// (non-empty) diagnostics so callers can still show why.
func Build(rows []model.RawRow, opts Options) (Result, error) {
	year := opts.Year
	if year == 0 {
		year = DefaultYear
	}

	res := Result{
		Tasks:   make([]model.Task, 0, len(rows)),
		Skipped: make([]model.Diagnostic, 0),
	}
	for _, row := range rows {
		out := Evaluate(row, year)
		if out.Skip != nil {
			appLog.Warn("row skipped", "index", out.Skip.RowIndex, "reason", out.Skip.Reason)
			res.Skipped = append(res.Skipped, *out.Skip)
			continue
		}
		res.Tasks = append(res.Tasks, *out.Task)
	}

	SortTasks(res.Tasks)

	appLog.Debug("schedule built", "rows", len(rows), "tasks", len(res.Tasks), "skipped", len(res.Skipped))

	if len(res.Tasks) == 0 {
		return res, ErrEmptySchedule
	}
	return res, nil
}

// SortTasks orders tasks by start date, then topic, then original row.
func SortTasks(tasks []model.Task) {
	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Topic, b.Topic); c != 0 {
			return c
		}
		return cmp.Compare(a.RowIndex, b.RowIndex)
	})
}
