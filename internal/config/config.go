// Package config handles loading and resolving covidchart configuration.
// Resolution order (later layers win):
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. environment variables COVIDCHART_BASE_URL and COVIDCHART_DB_PATH
//  4. CLI flags, applied by the cmd package after Load
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultConfigFile = "config.json"
	DefaultBaseURL    = "https://covidtracking.com/api/v1/"
	DefaultFormat     = "text"
	DefaultTimeout    = 30 * time.Second
	DefaultRate       = 2.0
	DefaultCacheTTL   = 6 * time.Hour
	DefaultHeight     = 30
	DefaultLatest     = 10
	DefaultMargin     = 12
	EnvBaseURL        = "COVIDCHART_BASE_URL"
	EnvDBPath         = "COVIDCHART_DB_PATH"
)

// Formats lists the accepted values for the latest-values output format.
var Formats = []string{"text", "table", "json", "csv"}

// File is the on-disk representation of config.json. Latest and Margin are
// pointers because 0 is a valid setting for both; nil means "not set".
type File struct {
	BaseURL       string  `json:"base_url"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Rate          float64 `json:"rate"`
	DBPath        string  `json:"db_path"`
	CacheTTL      string  `json:"cache_ttl"`
	Height        int     `json:"height"`
	Latest        *int    `json:"latest,omitempty"`
	Margin        *int    `json:"margin,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL    string
	Format     string
	Timeout    time.Duration
	Rate       float64
	DBPath     string
	CacheTTL   time.Duration
	Height     int
	Latest     int
	Margin     int
	ConfigPath string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	NoCache bool
	Refresh bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources except CLI flags.
// A missing config.json is not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:  DefaultBaseURL,
		Format:   DefaultFormat,
		Timeout:  DefaultTimeout,
		Rate:     DefaultRate,
		CacheTTL: DefaultCacheTTL,
		Height:   DefaultHeight,
		Latest:   DefaultLatest,
		Margin:   DefaultMargin,
	}

	// Layer 1: config.json
	f, path, err := loadFile()
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if f != nil {
		if err := applyFile(cfg, f, path); err != nil {
			return nil, err
		}
	}

	// Layer 2: environment
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".covidchart", "cache.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if any resolved value is out of range.
func (c *Config) Validate() error {
	if c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", c.Height)
	}
	if c.Latest < 0 {
		return fmt.Errorf("latest must not be negative, got %d", c.Latest)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %d", c.Margin)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %g", c.Rate)
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("unknown format %q (use text, table, json or csv)", c.Format)
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// loadFile reads config.json from the current working directory. The
// returned error satisfies os.IsNotExist when there is no file.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) error {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config.json timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.CacheTTL != "" {
		d, err := time.ParseDuration(f.CacheTTL)
		if err != nil {
			return fmt.Errorf("config.json cache_ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if f.Height > 0 {
		cfg.Height = f.Height
	}
	if f.Latest != nil {
		cfg.Latest = *f.Latest
	}
	if f.Margin != nil {
		cfg.Margin = *f.Margin
	}
	return nil
}

// Template returns a File populated with the defaults, suitable for
// writing an initial config.json via `covidchart config init`.
func Template() File {
	latest, margin := DefaultLatest, DefaultMargin
	return File{
		BaseURL:       DefaultBaseURL,
		DefaultFormat: DefaultFormat,
		Timeout:       DefaultTimeout.String(),
		Rate:          DefaultRate,
		CacheTTL:      DefaultCacheTTL.String(),
		Height:        DefaultHeight,
		Latest:        &latest,
		Margin:        &margin,
	}
}

// ReadFile loads a config File from path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
