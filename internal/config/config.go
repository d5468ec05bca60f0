package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/michaelscutari/dupscan/internal/pathutil"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DUPSCAN_CONFIG"

// Config is the optional dupscan configuration file.
type Config struct {
	TargetFolder          string   `toml:"target_folder"`
	IncludeSubdirectories bool     `toml:"include_subdirectories"`
	ExcludeFiles          []string `toml:"exclude_files"`
	ExcludePatterns       []string `toml:"exclude_patterns"`

	Database     string `toml:"database"`
	ReportFormat string `toml:"report_format"`
	ReportPath   string `toml:"report_path"`

	Debug  bool   `toml:"debug"`
	LogDir string `toml:"log_dir,omitempty"`
	Trace  string `toml:"trace,omitempty"` // file to write spans to; empty disables tracing

	Scan ScanConfig `toml:"scan"`
}

// ScanConfig holds tuning for the scan pipeline.
type ScanConfig struct {
	Workers    int    `toml:"workers"`
	BatchSize  int    `toml:"batch_size"`
	MaxErrors  int    `toml:"max_errors"`
	Hash       string `toml:"hash"` // "sha256" (default) or "blake3"
	SampleSize int    `toml:"sample_size"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		IncludeSubdirectories: true,
		ExcludeFiles:          []string{".DS_Store", "Thumbs.db", "desktop.ini"},
		ExcludePatterns:       []string{},
		Database:              filepath.Join("db", "index.db"),
		ReportFormat:          "csv",
		ReportPath:            "report.csv",
		Scan: ScanConfig{
			Workers:    4,
			BatchSize:  500,
			Hash:       "sha256",
			SampleSize: 10,
		},
	}
}

// Path returns the resolved path to the config file.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dupscan", "config.toml")
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of the defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the config at path, or at Path() when path is empty. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a scan.
func (c *Config) Validate() error {
	if c.ReportFormat != "" && c.ReportFormat != "csv" {
		return fmt.Errorf("unsupported report_format %q (only csv is supported)", c.ReportFormat)
	}
	switch c.Scan.Hash {
	case "", "sha256", "blake3":
	default:
		return fmt.Errorf("unsupported scan.hash %q (expected sha256|blake3)", c.Scan.Hash)
	}
	if c.Scan.SampleSize < 0 {
		return fmt.Errorf("scan.sample_size must not be negative")
	}
	if c.Database == "" {
		return fmt.Errorf("database path must be set")
	}
	return nil
}

// ExpandPaths normalizes every path-valued key in place, expanding a
// leading "~".
func (c *Config) ExpandPaths() {
	for _, p := range []*string{&c.TargetFolder, &c.Database, &c.ReportPath, &c.LogDir, &c.Trace} {
		*p = pathutil.Normalize(*p)
	}
}
