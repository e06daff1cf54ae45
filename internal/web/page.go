package web

import (
	"bytes"
	"html/template"
	"net/http"

	"cronograma/internal/chart"
	appLog "cronograma/internal/log"
	"cronograma/internal/pipeline"
	"cronograma/internal/sheet"
)

// pageData feeds both the dashboard and the chart-only page.
type pageData struct {
	Title    string
	Output   string
	Theme    chart.Theme
	Messages []pipeline.Message
	Headers  []string
	Rows     []rowView
	ChartSVG template.HTML
	Ready    bool
}

type rowView struct {
	Index     int
	Cells     []cellView
	Completed bool
}

// cellView is one table cell; Checkbox marks the editable completion column.
type cellView struct {
	Text     string
	Checkbox bool
}

func (s *Server) pageData(v pipeline.View) pageData {
	d := pageData{
		Title:    s.cfg.Title,
		Output:   s.cfg.Output,
		Theme:    chart.DarkTheme(),
		Messages: v.Messages,
	}
	if v.Chart != nil {
		d.Theme = v.Chart.Theme
		var buf bytes.Buffer
		if err := chart.RenderSVG(&buf, *v.Chart, chart.DefaultWidth); err != nil {
			appLog.Error("dashboard: chart render failed", err)
			d.Messages = append(d.Messages, pipeline.Message{Severity: pipeline.SeverityError, Text: err.Error()})
		} else {
			// RenderSVG escapes every user-supplied string.
			d.ChartSVG = template.HTML(buf.String())
			d.Ready = true
		}
	}
	if v.Table == nil {
		return d
	}

	d.Headers = v.Table.Headers
	d.Rows = make([]rowView, 0, v.Table.Len())
	for i := 0; i < v.Table.Len(); i++ {
		row := rowView{Index: i, Completed: v.Table.Completed(i)}
		for _, h := range v.Table.Headers {
			if h == sheet.ColCompleted {
				row.Cells = append(row.Cells, cellView{Checkbox: true})
				continue
			}
			row.Cells = append(row.Cells, cellView{Text: v.Table.Value(i, h).String()})
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}

func (s *Server) renderDashboard(w http.ResponseWriter, v pipeline.View, status int) {
	s.renderPage(w, "dashboard.html.tmpl", s.pageData(v), status)
}

// renderPage executes into a buffer first so a template failure never
// leaves a half-written page behind a 200.
func (s *Server) renderPage(w http.ResponseWriter, name string, data pageData, status int) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template execution failed", err, "template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
