package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"cronograma/internal/model"
)

// ContentType is the MIME type of the encoded workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheetName is used for exported workbooks.
const sheetName = "Sheet1"

// Read parses the first worksheet of an XLSX workbook. The first non-empty
// row is the header; every following row (blank ones included, up to the
// last non-empty row) is a data row, so row positions stay stable.
func Read(r io.ReaderAt, size int64) (*Table, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, fmt.Errorf("sheet: read workbook: %w", err)
	}
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, errors.New("sheet: workbook has no worksheets")
	}

	var (
		headers   []string
		headerRow uint32
		rows      [][]model.Value
		lastData  = -1
	)
	for _, row := range sheets[0].Rows() {
		values := rowValues(row)
		if headers == nil {
			if allNull(values) {
				continue
			}
			headerRow = row.RowNumber()
			headers = make([]string, len(values))
			for i, v := range values {
				headers[i] = v.String()
			}
			continue
		}

		// Fill gaps left by rows the file does not store.
		pos := int(row.RowNumber()-headerRow) - 1
		for len(rows) < pos {
			rows = append(rows, nil)
		}
		rows = append(rows, values)
		if !allNull(values) {
			lastData = len(rows) - 1
		}
	}
	if headers == nil {
		return nil, errors.New("sheet: worksheet has no header row")
	}

	return NewTable(headers, rows[:lastData+1]), nil
}

// rowValues returns the row's cells indexed by column, with empty Values for
// columns the file omits.
func rowValues(row spreadsheet.Row) []model.Value {
	var out []model.Value
	for _, cell := range row.Cells() {
		col, err := cell.Column()
		if err != nil {
			continue
		}
		idx := int(reference.ColumnToIndex(col))
		for len(out) <= idx {
			out = append(out, model.Value{})
		}
		out[idx] = cellValue(cell)
	}
	return out
}

func cellValue(cell spreadsheet.Cell) model.Value {
	if cell.IsEmpty() {
		return model.Value{}
	}
	if cell.IsBool() {
		if b, err := cell.GetValueAsBool(); err == nil {
			return model.Bool(b)
		}
	}
	if cell.IsNumber() {
		if f, err := cell.GetValueAsNumber(); err == nil {
			return model.Number(f)
		}
	}
	s := cell.GetString()
	if strings.TrimSpace(s) == "" {
		return model.Value{}
	}
	return model.Text(s)
}

func allNull(values []model.Value) bool {
	for _, v := range values {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// Encode writes the table as a single-sheet XLSX workbook with the same
// headers. Completion flags are written as boolean cells.
func (t *Table) Encode(w io.Writer) error {
	wb := spreadsheet.New()
	ws := wb.AddSheet()
	ws.SetName(sheetName)

	hdr := ws.AddRow()
	for _, h := range t.Headers {
		hdr.AddCell().SetString(h)
	}
	for _, values := range t.Rows {
		row := ws.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			switch v.Kind {
			case model.KindNumber:
				if !math.IsNaN(v.Number) && !math.IsInf(v.Number, 0) {
					cell.SetNumber(v.Number)
				}
			case model.KindText:
				cell.SetString(v.Text)
			case model.KindBool:
				cell.SetBool(v.Bool)
			}
		}
	}

	if err := wb.Save(w); err != nil {
		return fmt.Errorf("sheet: encode workbook: %w", err)
	}
	return nil
}

// Bytes encodes the table into a new buffer, for download responses.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return nil, exportErr("", err)
	}
	return buf.Bytes(), nil
}
