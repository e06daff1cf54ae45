package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Masterminds/sprig/v3"

	"cronograma/internal/chart"
	"cronograma/internal/config"
	"cronograma/internal/ics"
	appLog "cronograma/internal/log"
	"cronograma/internal/metrics"
	"cronograma/internal/pipeline"
	"cronograma/internal/sheet"
)

// DownloadName is the filename offered for the edited workbook.
const DownloadName = "tarefas_atualizadas.xlsx"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Server serves the dashboard, the exports and a small JSON API. Every
// request runs its own render pass; the server holds no schedule state.
type Server struct {
	cfg      *config.Config
	renderer *pipeline.Renderer
	store    *sheet.Store
	metrics  *metrics.Metrics
	mux      *http.ServeMux
	tmpl     *template.Template
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, renderer *pipeline.Renderer, store *sheet.Store, m *metrics.Metrics) (*Server, error) {
	tmpl, err := template.New("web").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		metrics:  m,
		mux:      http.NewServeMux(),
		tmpl:     tmpl,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than lock everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Cronograma", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/chart", s.handleChartPage)
	s.mux.HandleFunc("/chart.svg", s.handleChartSVG)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/export.xlsx", s.handleExport)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/{$}", s.handleDashboard)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleDashboard renders the table and chart. A POST carries the table's
// completion checkboxes and one of three actions:
//   - apply:    re-render with the edits
//   - download: return the edited workbook as an attachment
//   - save:     write the edited workbook to the configured output path
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.renderDashboard(w, s.renderer.Run(r.Context(), nil), http.StatusOK)
	case http.MethodPost:
		s.handleDashboardPost(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDashboardPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	edits := parseCompleted(r.PostForm["completed"])
	v := s.renderer.Run(r.Context(), edits)
	if v.Table == nil {
		s.renderDashboard(w, v, http.StatusOK)
		return
	}

	switch action := r.PostFormValue("action"); action {
	case "", "apply":
		s.renderDashboard(w, v, http.StatusOK)

	case "download":
		data, err := v.Table.Bytes()
		s.metrics.ObserveExport("xlsx", err)
		if err != nil {
			appLog.Error("download: encode failed", err)
			v.Messages = append(v.Messages, pipeline.Message{Severity: pipeline.SeverityError, Text: err.Error()})
			s.renderDashboard(w, v, http.StatusInternalServerError)
			return
		}
		writeAttachment(w, sheet.ContentType, DownloadName, data)

	case "save":
		err := s.store.Save(r.Context(), s.cfg.Output, v.Table)
		s.metrics.ObserveExport("xlsx", err)
		if err != nil {
			appLog.Error("save failed", err, "output", s.cfg.Output)
			v.Messages = append(v.Messages, pipeline.Message{Severity: pipeline.SeverityError, Text: err.Error()})
		} else {
			v.Messages = append(v.Messages, pipeline.Message{Severity: pipeline.SeverityInfo, Text: "saved to " + s.cfg.Output})
		}
		s.renderDashboard(w, v, http.StatusOK)

	default:
		http.Error(w, "unknown action "+strconv.Quote(action), http.StatusBadRequest)
	}
}

// parseCompleted turns the checked row indices into an edit set. The result
// is never nil: rows absent from it are pending.
func parseCompleted(values []string) map[int]bool {
	edits := make(map[int]bool, len(values))
	for _, raw := range values {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 0 {
			continue
		}
		edits[i] = true
	}
	return edits
}

// handleChartPage renders the chart alone; the snapshot job captures it.
func (s *Server) handleChartPage(w http.ResponseWriter, r *http.Request) {
	v := s.renderer.Run(r.Context(), nil)
	s.renderPage(w, "chart.html.tmpl", s.pageData(v), http.StatusOK)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	v := s.renderer.Run(r.Context(), nil)
	if v.Chart == nil {
		writeError(w, statusFor(v.Err), messageFor(v))
		return
	}
	var buf bytes.Buffer
	err := chart.RenderSVG(&buf, *v.Chart, chart.DefaultWidth)
	s.metrics.ObserveExport("svg", err)
	if err != nil {
		appLog.Error("chart svg: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	v := s.renderer.Run(r.Context(), nil)
	if v.Chart == nil {
		writeError(w, statusFor(v.Err), messageFor(v))
		return
	}
	var buf bytes.Buffer
	err := ics.Export(&buf, v.Result.Tasks, ics.ExportOptions{
		Name:   s.cfg.Title,
		Source: s.cfg.Input,
	})
	s.metrics.ObserveExport("ics", err)
	if err != nil {
		appLog.Error("calendar: export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleExport returns the workbook as currently stored, with the
// completion column normalized.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table, err := s.renderer.Load(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	data, err := table.Bytes()
	s.metrics.ObserveExport("xlsx", err)
	if err != nil {
		appLog.Error("export: encode failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, sheet.ContentType, DownloadName, data)
}

// handlePreview serves the last chart snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Clean(s.cfg.Snapshot.Path))
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Title    string             `json:"title"`
	Year     int                `json:"year"`
	Tasks    []taskDTO          `json:"tasks"`
	Skipped  []skippedDTO       `json:"skipped"`
	Messages []pipeline.Message `json:"messages"`
	Chart    *chartDTO          `json:"chart,omitempty"`
}

type taskDTO struct {
	Row           int       `json:"row"`
	Topic         string    `json:"topic"`
	Trainer       string    `json:"trainer"`
	Week          int       `json:"week"`
	DurationHours float64   `json:"duration_hours"`
	Completed     bool      `json:"completed"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Label         string    `json:"label"`
	ColorKey      string    `json:"color_key"`
	Opacity       float64   `json:"opacity"`
}

type skippedDTO struct {
	Row     int    `json:"row"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type chartDTO struct {
	RangeStart  time.Time           `json:"range_start"`
	RangeEnd    time.Time           `json:"range_end"`
	Categories  []string            `json:"categories"`
	LegendTitle string              `json:"legend_title"`
	Legend      []chart.LegendEntry `json:"legend"`
	Height      int                 `json:"height"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	v := s.renderer.Run(r.Context(), nil)
	if v.Table == nil {
		writeError(w, statusFor(v.Err), messageFor(v))
		return
	}

	resp := scheduleResponse{
		Title:    s.cfg.Title,
		Year:     s.renderer.Options().Year,
		Tasks:    make([]taskDTO, 0, len(v.Result.Tasks)),
		Skipped:  make([]skippedDTO, 0, len(v.Result.Skipped)),
		Messages: v.Messages,
	}
	for _, t := range v.Result.Tasks {
		resp.Tasks = append(resp.Tasks, taskDTO{
			Row:           t.RowIndex,
			Topic:         t.Topic,
			Trainer:       t.Trainer,
			Week:          t.Week,
			DurationHours: t.DurationHours,
			Completed:     t.Completed,
			Start:         t.Start,
			End:           t.End,
			Label:         t.Label,
			ColorKey:      t.ColorKey,
			Opacity:       t.Opacity,
		})
	}
	for _, d := range v.Result.Skipped {
		resp.Skipped = append(resp.Skipped, skippedDTO{Row: d.RowIndex, Reason: d.Reason, Message: d.Message()})
	}
	if v.Chart != nil {
		resp.Chart = &chartDTO{
			RangeStart:  v.Chart.RangeStart,
			RangeEnd:    v.Chart.RangeEnd,
			Categories:  v.Chart.Categories,
			LegendTitle: v.Chart.LegendTitle,
			Legend:      v.Chart.Legend,
			Height:      v.Chart.Height,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a render failure to an HTTP status for the non-HTML routes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sheet.ErrMissingFile):
		return http.StatusNotFound
	case err == nil:
		return http.StatusOK
	default:
		return http.StatusUnprocessableEntity
	}
}

func messageFor(v pipeline.View) string {
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Severity != pipeline.SeverityInfo {
			return v.Messages[i].Text
		}
	}
	if v.Err != nil {
		return v.Err.Error()
	}
	return "unavailable"
}

func writeAttachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
