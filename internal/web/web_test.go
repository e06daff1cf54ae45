package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronograma/internal/config"
	"cronograma/internal/metrics"
	"cronograma/internal/model"
	"cronograma/internal/pipeline"
	"cronograma/internal/sheet"
)

type fixture struct {
	fs     afero.Fs
	store  *sheet.Store
	server *Server
	cfg    *config.Config
}

func workbook() *sheet.Table {
	return sheet.NewTable(
		[]string{sheet.ColWeek, sheet.ColDuration, sheet.ColTopic, sheet.ColTrainer},
		[][]model.Value{
			{model.Number(10), model.Number(8), model.Text("Intro"), model.Text("Ana")},
			{model.Number(12), model.Number(4), model.Text("Git"), model.Text("Rui")},
			{model.Number(11), model.Number(16), model.Value{}, model.Text("Rui")},
		},
	)
}

func newFixture(t *testing.T, tbl *sheet.Table) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	fsys := afero.NewMemMapFs()
	store := sheet.NewStore(fsys, nil)
	if tbl != nil {
		require.NoError(t, store.Save(context.Background(), cfg.Input, tbl))
	}
	m := metrics.New()
	renderer := pipeline.NewRenderer(store, m, pipeline.Options{
		Input:  cfg.Input,
		Year:   cfg.Year,
		Locale: cfg.Locale,
		Title:  cfg.Title,
	})
	srv, err := NewServer(cfg, renderer, store, m)
	require.NoError(t, err)
	return &fixture{fs: fsys, store: store, server: srv, cfg: cfg}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDashboard(t *testing.T) {
	t.Run("Should render the table, chart and skip diagnostics", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Cronograma de Formação 2025")
		assert.Contains(t, body, "row 2 skipped: missing required field: topic")
		assert.Contains(t, body, `data-ready="true"`)
		assert.Contains(t, body, "<svg")
		assert.Contains(t, body, `name="completed" value="0"`)
	})

	t.Run("Should report a missing input file", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "input file not found")
		assert.NotContains(t, rec.Body.String(), `data-ready="true"`)
	})

	t.Run("Should report an empty schedule without a chart", func(t *testing.T) {
		tbl := sheet.NewTable(
			[]string{sheet.ColWeek, sheet.ColDuration, sheet.ColTopic, sheet.ColTrainer},
			[][]model.Value{{model.Number(99), model.Number(8), model.Text("X"), model.Text("Y")}},
		)
		f := newFixture(t, tbl)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		body := rec.Body.String()
		assert.Contains(t, body, "no valid tasks")
		assert.Contains(t, body, "row 0 skipped")
		assert.NotContains(t, body, "<svg")
	})

	t.Run("Should apply completion edits statelessly", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(postForm(url.Values{"completed": {"1"}, "action": {"apply"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="1" checked`)
		assert.Contains(t, rec.Body.String(), "✅ Git (Rui)")

		stored, err := f.store.Load(context.Background(), f.cfg.Input)
		require.NoError(t, err)
		assert.False(t, stored.Completed(1))
	})

	t.Run("Should download the edited workbook", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(postForm(url.Values{"completed": {"0", "2"}, "action": {"download"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, sheet.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), DownloadName)

		data := rec.Body.Bytes()
		tbl, err := sheet.Read(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		assert.True(t, tbl.Completed(0))
		assert.False(t, tbl.Completed(1))
		assert.True(t, tbl.Completed(2))
	})

	t.Run("Should save the edited workbook to the output path", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(postForm(url.Values{"completed": {"1"}, "action": {"save"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "saved to "+f.cfg.Output)

		saved, err := f.store.Load(context.Background(), f.cfg.Output)
		require.NoError(t, err)
		assert.True(t, saved.Completed(1))
		assert.Equal(t, 3, saved.Len())
	})

	t.Run("Should keep the page usable when saving fails", func(t *testing.T) {
		f := newFixture(t, workbook())
		f.server.store = sheet.NewStore(afero.NewReadOnlyFs(f.fs), nil)
		rec := f.do(postForm(url.Values{"completed": {"1"}, "action": {"save"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "msg-error")
		assert.Contains(t, body, `value="1" checked`)
	})

	t.Run("Should ignore a client-supplied row count", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(postForm(url.Values{"rows": {"2000000000"}, "completed": {"0"}, "action": {"apply"}}))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `value="0" checked`)
		assert.NotContains(t, body, `value="1" checked`)
		assert.NotContains(t, body, `name="rows"`)
	})

	t.Run("Should reject unknown actions", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(postForm(url.Values{"action": {"nuke"}}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExports(t *testing.T) {
	t.Run("Should serve the chart page with a ready marker", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/chart", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `data-ready="true"`)
	})

	t.Run("Should serve the chart as SVG", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/chart.svg", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "Intro (Ana)")
	})

	t.Run("Should serve the schedule as iCalendar", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
		assert.Contains(t, rec.Body.String(), "Intro")
	})

	t.Run("Should return 404 JSON when the input is missing", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/chart.svg", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "input file not found")
	})

	t.Run("Should export the stored workbook", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		data := rec.Body.Bytes()
		tbl, err := sheet.Read(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
	})

	t.Run("Should list tasks and skipped rows as JSON", func(t *testing.T) {
		f := newFixture(t, workbook())
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp scheduleResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Tasks, 2)
		assert.Equal(t, "Intro", resp.Tasks[0].Topic)
		assert.Equal(t, "Git", resp.Tasks[1].Topic)
		require.Len(t, resp.Skipped, 1)
		assert.Equal(t, 2, resp.Skipped[0].Row)
		require.NotNil(t, resp.Chart)
		assert.Equal(t, 2025, resp.Year)
	})

	t.Run("Should expose metrics after a render", func(t *testing.T) {
		f := newFixture(t, workbook())
		f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `cronograma_renders_total{outcome="ok"} 1`)
	})
}

func TestBasicAuth(t *testing.T) {
	f := newFixture(t, workbook())
	f.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}

	t.Run("Should leave /health open", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("Should reject missing credentials", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("Should accept valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth("admin", "secret")
		rec := f.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestParseCompleted(t *testing.T) {
	t.Run("Should keep only valid checked indices", func(t *testing.T) {
		got := parseCompleted([]string{"1", "x", "-2", "7"})
		assert.Equal(t, map[int]bool{1: true, 7: true}, got)
	})

	t.Run("Should return an empty edit set when nothing is checked", func(t *testing.T) {
		got := parseCompleted(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}
