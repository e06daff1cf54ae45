package sheet

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile = errors.New("input file not found")
	ErrExport      = errors.New("export failed")
)

// ExportError wraps a failed save. The in-memory table is never modified by
// a failed export, so callers can retry or offer a download instead.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("sheet: %s: %v", ErrExport, e.Err)
	}
	return fmt.Sprintf("sheet: %s (%s): %v", ErrExport, e.Path, e.Err)
}

func (e *ExportError) Unwrap() []error { return []error{ErrExport, e.Err} }

func exportErr(path string, err error) error {
	return &ExportError{Path: path, Err: err}
}

func missingFile(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingFile, path)
}
