package sheet

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"cronograma/internal/model"
)

// Column headers of the schedule workbook.
const (
	ColWeek      = "Semana Sugestiva"
	ColDuration  = "Duração (horas)"
	ColTopic     = "Tema da Formação"
	ColTrainer   = "Formador"
	ColCompleted = "Concluído"
)

// RequiredColumns are the headers a schedule workbook must carry.
var RequiredColumns = []string{ColWeek, ColDuration, ColTopic, ColTrainer}

// Table is the tabular content of a schedule workbook: trimmed headers plus
// one Value per header for every data row. ColCompleted is always present
// and always holds booleans.
type Table struct {
	Headers []string
	Rows    [][]model.Value

	index map[string]int
}

// NewTable builds a table from headers and rows. Headers are trimmed and
// Unicode-normalized; rows are padded or cut to the header width; the
// completion column is added (false) or coerced to booleans.
func NewTable(headers []string, rows [][]model.Value) *Table {
	t := &Table{
		Headers: make([]string, len(headers)),
		Rows:    make([][]model.Value, len(rows)),
	}
	for i, h := range headers {
		h = cleanHeader(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		t.Headers[i] = h
	}
	for i, r := range rows {
		out := make([]model.Value, len(t.Headers))
		copy(out, r)
		t.Rows[i] = out
	}
	t.reindex()

	if c, ok := t.index[ColCompleted]; ok {
		for _, r := range t.Rows {
			r[c] = model.Bool(r[c].Truthy())
		}
	} else {
		t.Headers = append(t.Headers, ColCompleted)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], model.Bool(false))
		}
		t.reindex()
	}
	return t
}

func cleanHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(h))
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// MissingColumns lists required headers absent from the table.
func (t *Table) MissingColumns() []string {
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Value returns the cell of row i under header col, or an empty Value.
func (t *Table) Value(i int, col string) model.Value {
	c, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.Rows) {
		return model.Value{}
	}
	return t.Rows[i][c]
}

// Completed reports the completion flag of row i.
func (t *Table) Completed(i int) bool {
	return t.Value(i, ColCompleted).Truthy()
}

// SetCompleted updates the completion flag of row i.
func (t *Table) SetCompleted(i int, done bool) error {
	if i < 0 || i >= len(t.Rows) {
		return fmt.Errorf("sheet: row %d out of range (0..%d)", i, len(t.Rows)-1)
	}
	t.Rows[i][t.index[ColCompleted]] = model.Bool(done)
	return nil
}

// ApplyCompleted sets every row's flag from the given set of completed row
// indexes; rows not in the set are marked pending.
func (t *Table) ApplyCompleted(done map[int]bool) {
	c := t.index[ColCompleted]
	for i := range t.Rows {
		t.Rows[i][c] = model.Bool(done[i])
	}
}

// Clone returns a deep copy so edits for one render pass never leak into
// another.
func (t *Table) Clone() *Table {
	out := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]model.Value, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]model.Value(nil), r...)
	}
	out.reindex()
	return out
}

// RawRows maps the table onto the schedule row schema.
func (t *Table) RawRows() []model.RawRow {
	rows := make([]model.RawRow, len(t.Rows))
	for i := range t.Rows {
		rows[i] = model.RawRow{
			Index:         i,
			Week:          t.Value(i, ColWeek),
			DurationHours: t.Value(i, ColDuration),
			Topic:         t.Value(i, ColTopic),
			Trainer:       t.Value(i, ColTrainer),
			Completed:     t.Completed(i),
		}
	}
	return rows
}
