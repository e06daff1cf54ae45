// Package pipeline runs one render pass: load the workbook, apply the
// user's completion edits, build the schedule and project the chart.
// Every pass starts from scratch; nothing is shared between passes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cronograma/internal/chart"
	appLog "cronograma/internal/log"
	"cronograma/internal/metrics"
	"cronograma/internal/schedule"
	"cronograma/internal/sheet"
)

// Severity of a user-visible message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Message is shown to the user above the chart.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Options configures a Renderer.
type Options struct {
	Input  string
	Year   int
	Locale string
	Title  string
}

// View is the outcome of a render pass. Chart is nil when the pass could
// not produce one; Err then says why (ErrMissingFile or ErrEmptySchedule).
type View struct {
	Table    *sheet.Table
	Result   schedule.Result
	Chart    *chart.Spec
	Messages []Message
	Err      error
}

// Renderer performs render passes against one configured input.
type Renderer struct {
	store   *sheet.Store
	metrics *metrics.Metrics
	opts    Options
}

func NewRenderer(store *sheet.Store, m *metrics.Metrics, opts Options) *Renderer {
	return &Renderer{store: store, metrics: m, opts: opts}
}

// Options returns the renderer configuration.
func (r *Renderer) Options() Options { return r.opts }

// Load reads the configured input workbook.
func (r *Renderer) Load(ctx context.Context) (*sheet.Table, error) {
	return r.store.Load(ctx, r.opts.Input)
}

// Run loads the input and renders it. When edits is non-nil it replaces
// every row's completion flag (row index -> done) before building.
func (r *Renderer) Run(ctx context.Context, edits map[int]bool) View {
	table, err := r.Load(ctx)
	if err != nil {
		outcome := metrics.OutcomeError
		text := err.Error()
		if errors.Is(err, sheet.ErrMissingFile) {
			outcome = metrics.OutcomeMissingFile
			text = fmt.Sprintf("input file not found: %s", r.opts.Input)
		}
		appLog.Error("render: load failed", err, "input", r.opts.Input)
		r.metrics.ObserveRender(outcome, 0, 0)
		return View{Err: err, Messages: []Message{{Severity: SeverityError, Text: text}}}
	}
	if edits != nil {
		table.ApplyCompleted(edits)
	}
	return r.Render(table)
}

// Render builds the schedule and chart for an already loaded table.
func (r *Renderer) Render(table *sheet.Table) View {
	v := View{Table: table}

	if missing := table.MissingColumns(); len(missing) > 0 {
		v.Messages = append(v.Messages, Message{
			Severity: SeverityWarning,
			Text:     "missing columns: " + strings.Join(missing, ", "),
		})
	}

	res, err := schedule.Build(table.RawRows(), schedule.Options{Year: r.opts.Year})
	v.Result = res
	for _, d := range res.Skipped {
		v.Messages = append(v.Messages, Message{Severity: SeverityWarning, Text: d.Message()})
	}
	if err != nil {
		v.Err = err
		v.Messages = append(v.Messages, Message{Severity: SeverityWarning, Text: "no valid tasks"})
		r.metrics.ObserveRender(metrics.OutcomeEmpty, 0, len(res.Skipped))
		return v
	}

	spec, err := chart.Project(res, chart.Options{Title: r.opts.Title, Locale: r.opts.Locale})
	if err != nil {
		appLog.Error("render: chart projection failed", err)
		v.Err = err
		v.Messages = append(v.Messages, Message{Severity: SeverityError, Text: err.Error()})
		r.metrics.ObserveRender(metrics.OutcomeError, len(res.Tasks), len(res.Skipped))
		return v
	}
	v.Chart = &spec

	appLog.Info("render pass completed", "input", r.opts.Input, "rows", table.Len(), "tasks", len(res.Tasks), "skipped", len(res.Skipped))
	r.metrics.ObserveRender(metrics.OutcomeOK, len(res.Tasks), len(res.Skipped))
	return v
}
