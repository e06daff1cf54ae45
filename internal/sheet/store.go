package sheet

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	appLog "cronograma/internal/log"
)

const lockRetryDelay = 50 * time.Millisecond

// Store loads and saves schedule workbooks on a filesystem. Inputs given as
// http(s) URLs are delegated to a Fetcher.
type Store struct {
	fs      afero.Fs
	fetcher *Fetcher
}

// NewStore creates a Store on fsys. fetcher may be nil when only local
// paths are used.
func NewStore(fsys afero.Fs, fetcher *Fetcher) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{fs: fsys, fetcher: fetcher}
}

// IsRemote reports whether input names an http(s) resource.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// Load reads the workbook at input. A missing local file yields
// ErrMissingFile.
func (s *Store) Load(ctx context.Context, input string) (*Table, error) {
	if IsRemote(input) {
		if s.fetcher == nil {
			return nil, errors.New("sheet: remote input configured but no fetcher available")
		}
		res, err := s.fetcher.FetchOne(ctx, input)
		if err != nil {
			return nil, err
		}
		return Read(bytes.NewReader(res.Body), int64(len(res.Body)))
	}

	f, err := s.fs.Open(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, missingFile(input)
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, missingFile(input)
	}
	return Read(f, info.Size())
}

// Save replaces the workbook at path with t. The table is encoded in memory
// first, then written to a temp file in the same directory and renamed over
// path, so readers see either the old or the new file. On a real filesystem
// the whole sequence runs under an exclusive lock on "<path>.lock".
func (s *Store) Save(ctx context.Context, path string, t *Table) (err error) {
	if path == "" {
		return exportErr(path, errors.New("output path is empty"))
	}

	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return exportErr(path, err)
	}

	unlock, err := s.lock(ctx, path)
	if err != nil {
		return exportErr(path, err)
	}
	defer unlock()

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return exportErr(path, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".cronograma-*.xlsx.tmp")
	if err != nil {
		return exportErr(path, err)
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return exportErr(path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return exportErr(path, err)
	}
	if err = tmp.Close(); err != nil {
		return exportErr(path, err)
	}
	if err = s.fs.Chmod(tmpName, 0o644); err != nil {
		return exportErr(path, err)
	}
	if err = s.fs.Rename(tmpName, path); err != nil {
		return exportErr(path, err)
	}

	appLog.Info("workbook saved", "path", path, "rows", t.Len(), "bytes", buf.Len())
	return nil
}

// lock takes the advisory file lock for path. In-memory filesystems (tests)
// have no lock to take.
func (s *Store) lock(ctx context.Context, path string) (func(), error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("could not acquire workbook lock")
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			appLog.Error("workbook unlock failed", err, "path", path)
		}
	}, nil
}
