package sheet

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronograma/internal/model"
)

func sampleTable(withCompleted bool) *Table {
	headers := []string{" Semana Sugestiva ", "Duração (horas)", "Tema da Formação ", "Formador", "Sala"}
	rows := [][]model.Value{
		{model.Number(10), model.Number(8), model.Text("Intro"), model.Text("Ana"), model.Text("A1")},
		{model.Number(11), model.Number(16), model.Text("Excel"), model.Text("Rui")},
		{model.Value{}, model.Number(4), model.Text("Sem semana"), model.Text("Ana"), model.Text("B2")},
	}
	if withCompleted {
		headers = append(headers, "Concluído")
		rows[0] = append(rows[0], model.Text("sim"))
		rows[1] = append(rows[1], model.Value{}, model.Bool(false))
	}
	return NewTable(headers, rows)
}

func encode(t *testing.T, tbl *Table) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tbl.Encode(&buf))
	return buf.Bytes()
}

func TestNewTable(t *testing.T) {
	t.Run("Should trim headers and add the completion column", func(t *testing.T) {
		tbl := sampleTable(false)
		assert.Equal(t, []string{ColWeek, ColDuration, ColTopic, ColTrainer, "Sala", ColCompleted}, tbl.Headers)
		assert.Empty(t, tbl.MissingColumns())
		for i := 0; i < tbl.Len(); i++ {
			assert.Equal(t, model.Bool(false), tbl.Value(i, ColCompleted))
		}
	})

	t.Run("Should coerce an existing completion column to booleans", func(t *testing.T) {
		tbl := sampleTable(true)
		assert.Equal(t, model.Bool(true), tbl.Value(0, ColCompleted))
		assert.Equal(t, model.Bool(false), tbl.Value(1, ColCompleted))
		assert.Equal(t, model.Bool(false), tbl.Value(2, ColCompleted))
	})

	t.Run("Should match decomposed accents in headers", func(t *testing.T) {
		tbl := NewTable([]string{"Conclui\u0301do "}, [][]model.Value{{model.Bool(true)}})
		assert.Equal(t, []string{ColCompleted}, tbl.Headers)
		assert.True(t, tbl.Completed(0))
	})

	t.Run("Should report missing required columns", func(t *testing.T) {
		tbl := NewTable([]string{ColTopic}, nil)
		assert.Equal(t, []string{ColWeek, ColDuration, ColTrainer}, tbl.MissingColumns())
	})
}

func TestTableEdits(t *testing.T) {
	t.Run("Should map rows onto the schedule schema", func(t *testing.T) {
		rows := sampleTable(true).RawRows()
		require.Len(t, rows, 3)
		assert.Equal(t, 0, rows[0].Index)
		assert.Equal(t, model.Number(10), rows[0].Week)
		assert.Equal(t, model.Text("Intro"), rows[0].Topic)
		assert.True(t, rows[0].Completed)
		assert.True(t, rows[2].Week.IsNull())
	})

	t.Run("Should set and apply completion flags", func(t *testing.T) {
		tbl := sampleTable(false)
		require.NoError(t, tbl.SetCompleted(1, true))
		assert.True(t, tbl.Completed(1))
		assert.Error(t, tbl.SetCompleted(9, true))

		tbl.ApplyCompleted(map[int]bool{2: true})
		assert.False(t, tbl.Completed(1))
		assert.True(t, tbl.Completed(2))
	})

	t.Run("Should not share rows with clones", func(t *testing.T) {
		tbl := sampleTable(false)
		clone := tbl.Clone()
		require.NoError(t, clone.SetCompleted(0, true))
		assert.False(t, tbl.Completed(0))
		assert.True(t, clone.Completed(0))
	})
}

func TestEncodeRead(t *testing.T) {
	t.Run("Should round-trip values and completion flags by row", func(t *testing.T) {
		tbl := sampleTable(false)
		require.NoError(t, tbl.SetCompleted(0, true))
		require.NoError(t, tbl.SetCompleted(2, true))

		data := encode(t, tbl)
		got, err := Read(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err)

		assert.Equal(t, tbl.Headers, got.Headers)
		require.Equal(t, tbl.Len(), got.Len())
		for i := 0; i < tbl.Len(); i++ {
			assert.Equal(t, tbl.Completed(i), got.Completed(i), "row %d", i)
			assert.Equal(t, model.KindBool, got.Value(i, ColCompleted).Kind)
		}
		assert.Equal(t, 10.0, got.Value(0, ColWeek).Number)
		assert.Equal(t, "Excel", got.Value(1, ColTopic).Text)
		assert.True(t, got.Value(1, "Sala").IsNull())
		assert.True(t, got.Value(2, ColWeek).IsNull())
	})

	t.Run("Should reject data that is not a workbook", func(t *testing.T) {
		data := []byte("not a zip")
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		assert.Error(t, err)
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report a missing input file", func(t *testing.T) {
		s := NewStore(afero.NewMemMapFs(), nil)
		_, err := s.Load(ctx, "tarefas.xlsx")
		assert.ErrorIs(t, err, ErrMissingFile)
	})

	t.Run("Should save and load a workbook", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		s := NewStore(fsys, nil)
		tbl := sampleTable(false)
		require.NoError(t, tbl.SetCompleted(1, true))

		require.NoError(t, s.Save(ctx, "out/tarefas_atualizadas.xlsx", tbl))
		got, err := s.Load(ctx, "out/tarefas_atualizadas.xlsx")
		require.NoError(t, err)
		assert.True(t, got.Completed(1))
		assert.False(t, got.Completed(0))

		entries, err := afero.ReadDir(fsys, "out")
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file must not survive a save")
	})

	t.Run("Should wrap write failures as export errors", func(t *testing.T) {
		s := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), nil)
		tbl := sampleTable(false)
		err := s.Save(ctx, "out.xlsx", tbl)
		assert.ErrorIs(t, err, ErrExport)
		var exportErr *ExportError
		require.ErrorAs(t, err, &exportErr)
		assert.Equal(t, "out.xlsx", exportErr.Path)
	})

	t.Run("Should refuse an empty output path", func(t *testing.T) {
		s := NewStore(afero.NewMemMapFs(), nil)
		assert.ErrorIs(t, s.Save(ctx, "", sampleTable(false)), ErrExport)
	})
}

func TestFetcher(t *testing.T) {
	ctx := context.Background()
	data := encode(t, sampleTable(true))

	t.Run("Should download, then reuse the cache on 304", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write(data)
		}))
		defer srv.Close()

		f := NewFetcher(afero.NewMemMapFs(), "cache")
		first, err := f.FetchOne(ctx, srv.URL+"/tarefas.xlsx")
		require.NoError(t, err)
		assert.False(t, first.FromCache)

		second, err := f.FetchOne(ctx, srv.URL+"/tarefas.xlsx")
		require.NoError(t, err)
		assert.True(t, second.FromCache)
		assert.Equal(t, data, second.Body)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("Should load remote inputs through the store", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(data)
		}))
		defer srv.Close()

		s := NewStore(afero.NewMemMapFs(), NewFetcher(afero.NewMemMapFs(), "cache"))
		tbl, err := s.Load(ctx, srv.URL+"/tarefas.xlsx")
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
		assert.True(t, tbl.Completed(0))
	})

	t.Run("Should map 404 without cache to a missing file", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		f := NewFetcher(afero.NewMemMapFs(), "cache")
		_, err := f.FetchOne(ctx, srv.URL+"/gone.xlsx")
		assert.ErrorIs(t, err, ErrMissingFile)
	})
}

func TestRedactURL(t *testing.T) {
	t.Run("Should keep only scheme and host", func(t *testing.T) {
		assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/s/abc?token=1"))
		assert.Equal(t, "...(redacted)", redactURL("tarefas.xlsx"))
	})
}
