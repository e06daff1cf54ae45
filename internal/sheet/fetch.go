package sheet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	appLog "cronograma/internal/log"
)

// maxWorkbookBytes bounds a remote download.
const maxWorkbookBytes = 32 << 20

// FetchResult contains the outcome of fetching a remote workbook.
type FetchResult struct {
	URL       string
	Body      []byte
	FromCache bool // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata for a single workbook URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads published workbooks with HTTP caching
// (ETag / Last-Modified) and a disk-backed cache used as fallback when the
// origin is unreachable.
type Fetcher struct {
	client   *http.Client
	fs       afero.Fs
	cacheDir string
}

// NewFetcher creates a new Fetcher storing its cache under cacheDir on fsys.
func NewFetcher(fsys afero.Fs, cacheDir string) *Fetcher {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if cacheDir == "" {
		cacheDir = "./cache/workbooks"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		fs:       fsys,
		cacheDir: cacheDir,
	}
}

// FetchOne fetches url, honoring ETag and Last-Modified. A 404 with nothing
// cached is reported as ErrMissingFile.
func (f *Fetcher) FetchOne(ctx context.Context, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("sheet: workbook URL is empty")
	}

	cachePath := f.cachePathForURL(url)
	if err := f.fs.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := afero.ReadFile(f.fs, filepath.Join(cachePath, "body.xlsx"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("workbook fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("workbook fetch network error, using cached body", err, "url", redactURL(url))
			return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("sheet: fetch workbook: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes+1))
		if readErr != nil {
			return FetchResult{}, readErr
		}
		if len(body) > maxWorkbookBytes {
			return FetchResult{}, fmt.Errorf("sheet: workbook larger than %d bytes", maxWorkbookBytes)
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("workbook cache save failed", err, "url", redactURL(url))
		}
		appLog.Info("workbook fetch success", "url", redactURL(url), "bytes", len(body))
		return FetchResult{URL: url, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("sheet: received 304 Not Modified but no cached body available")
		}
		appLog.Debug("workbook not modified; using cache", "url", redactURL(url))
		return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("workbook fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(url), "status", resp.StatusCode)
			return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		if resp.StatusCode == http.StatusNotFound {
			return FetchResult{}, missingFile(redactURL(url))
		}
		return FetchResult{}, fmt.Errorf("sheet: fetch workbook: %s", resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	// Use first 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := afero.ReadFile(f.fs, filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := afero.WriteFile(f.fs, filepath.Join(cachePath, "body.xlsx"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(f.fs, filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host so share tokens in paths or query
// strings never reach the logs.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
