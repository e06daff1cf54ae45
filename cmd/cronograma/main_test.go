package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronograma/internal/config"
	"cronograma/internal/ics"
	"cronograma/internal/model"
	"cronograma/internal/sheet"
)

// setup writes a workbook into a temp dir and returns the common flags.
func setup(t *testing.T) (dir string, args []string) {
	t.Helper()
	dir = t.TempDir()
	tbl := sheet.NewTable(
		[]string{sheet.ColWeek, sheet.ColDuration, sheet.ColTopic, sheet.ColTrainer},
		[][]model.Value{
			{model.Number(10), model.Number(8), model.Text("Intro"), model.Text("Ana")},
			{model.Number(11), model.Number(4), model.Value{}, model.Text("Rui")},
		},
	)
	store := sheet.NewStore(afero.NewOsFs(), nil)
	require.NoError(t, store.Save(context.Background(), filepath.Join(dir, "tarefas.xlsx"), tbl))
	return dir, []string{
		"--config", filepath.Join(dir, "cronograma.yaml"),
		"--input", filepath.Join(dir, "tarefas.xlsx"),
		"--output", filepath.Join(dir, "out.xlsx"),
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestApplyOverrides(t *testing.T) {
	t.Run("Should override config fields set on the command line", func(t *testing.T) {
		cfg := config.DefaultConfig()
		err := applyOverrides(cfg, &rootFlags{input: "a.xlsx", output: "b.xlsx", year: 2026, logLevel: "debug", locale: "en"})
		require.NoError(t, err)
		assert.Equal(t, "a.xlsx", cfg.Input)
		assert.Equal(t, "b.xlsx", cfg.Output)
		assert.Equal(t, 2026, cfg.Year)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "en", cfg.Locale)
	})

	t.Run("Should reject an output equal to the input", func(t *testing.T) {
		cfg := config.DefaultConfig()
		err := applyOverrides(cfg, &rootFlags{output: cfg.Input})
		assert.Error(t, err)
	})
}

func TestCommands(t *testing.T) {
	t.Run("Should list tasks and skipped rows on check", func(t *testing.T) {
		_, args := setup(t)
		out, err := run(t, append([]string{"check"}, args...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "row 1 skipped: missing required field: topic")
		assert.Contains(t, out, "Intro (Ana)")
		assert.Contains(t, out, "1 tasks, 1 skipped")
	})

	t.Run("Should fail check when the input is missing", func(t *testing.T) {
		dir := t.TempDir()
		_, err := run(t, "check", "--config", filepath.Join(dir, "c.yaml"), "--input", filepath.Join(dir, "none.xlsx"))
		assert.ErrorIs(t, err, sheet.ErrMissingFile)
	})

	t.Run("Should write completion edits on export", func(t *testing.T) {
		dir, args := setup(t)
		out, err := run(t, append([]string{"export", "--complete", "0,1"}, args...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "2 rows, 2 changed")

		store := sheet.NewStore(afero.NewOsFs(), nil)
		saved, err := store.Load(context.Background(), filepath.Join(dir, "out.xlsx"))
		require.NoError(t, err)
		assert.True(t, saved.Completed(0))
		assert.True(t, saved.Completed(1))

		src, err := store.Load(context.Background(), filepath.Join(dir, "tarefas.xlsx"))
		require.NoError(t, err)
		assert.False(t, src.Completed(0))
	})

	t.Run("Should reject out-of-range rows on export", func(t *testing.T) {
		_, args := setup(t)
		_, err := run(t, append([]string{"export", "--complete", "5"}, args...)...)
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("Should print an iCalendar export", func(t *testing.T) {
		_, args := setup(t)
		out, err := run(t, append([]string{"ics"}, args...)...)
		require.NoError(t, err)
		events, err := ics.ParseICS([]byte(out))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Intro (Ana)", events[0].Summary)
	})

	t.Run("Should write the SVG chart to a file", func(t *testing.T) {
		dir, args := setup(t)
		svg := filepath.Join(dir, "chart.svg")
		_, err := run(t, append([]string{"chart", "--out", svg}, args...)...)
		require.NoError(t, err)
		exists, err := afero.Exists(afero.NewOsFs(), svg)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Should fail the chart command when the input is missing", func(t *testing.T) {
		dir := t.TempDir()
		_, err := run(t, "chart", "--config", filepath.Join(dir, "c.yaml"), "--input", filepath.Join(dir, "none.xlsx"))
		assert.ErrorIs(t, err, sheet.ErrMissingFile)
	})
}
