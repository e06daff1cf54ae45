package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

const (
	defaultListen   = "127.0.0.1:8080"
	defaultInput    = "tarefas.xlsx"
	defaultOutput   = "tarefas_atualizadas.xlsx"
	defaultYear     = 2025
	defaultLocale   = "pt-PT"
	defaultTitle    = "Cronograma de Formação 2025"
	defaultLogLevel = "info"
	defaultCacheDir = "./cache"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SnapshotConfig controls the periodic PNG capture of the dashboard chart.
type SnapshotConfig struct {
	// Cron is a standard 5-field schedule (e.g. "0 7 * * 1"). Empty
	// disables periodic snapshots.
	Cron string `yaml:"cron" json:"cron"`
	// URL is the page to capture. Empty means the local /chart page.
	URL string `yaml:"url" json:"url" validate:"omitempty,url"`
	// Path is where the PNG is written; also served at /preview.png.
	Path   string `yaml:"path" json:"path"`
	Width  int    `yaml:"width" json:"width" validate:"gte=0,lte=8000"`
	Height int    `yaml:"height" json:"height" validate:"gte=0,lte=8000"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Input is the schedule workbook: a local path or an http(s) URL.
	Input string `yaml:"input" json:"input" validate:"required"`

	// Output is where "save" writes the edited workbook. It must differ
	// from Input so a save never silently overwrites the source.
	Output string `yaml:"output" json:"output" validate:"required,nefield=Input"`

	// Year is the calendar year week numbers refer to.
	Year int `yaml:"year" json:"year" validate:"gte=1,lte=9999"`

	// Locale is a BCP 47 tag used for chart dates and numbers (e.g. "pt-PT").
	Locale string `yaml:"locale" json:"locale"`

	// Title is shown above the table and the chart.
	Title string `yaml:"title" json:"title"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// CacheDir holds downloaded workbooks for remote inputs.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Input:    defaultInput,
		Output:   defaultOutput,
		Year:     defaultYear,
		Locale:   defaultLocale,
		Title:    defaultTitle,
		LogLevel: defaultLogLevel,
		CacheDir: defaultCacheDir,
		Snapshot: SnapshotConfig{
			Path: filepath.Join(defaultCacheDir, "preview.png"),
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Input == "" {
		c.Input = defaultInput
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	if c.Year <= 0 {
		c.Year = defaultYear
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.Title == "" {
		c.Title = defaultTitle
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// ok
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = filepath.Join(c.CacheDir, "preview.png")
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the snapshot cron expression.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Snapshot.Cron != "" {
		if _, err := cron.ParseStandard(c.Snapshot.Cron); err != nil {
			return fmt.Errorf("config: snapshot.cron %q: %w", c.Snapshot.Cron, err)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cronograma-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
