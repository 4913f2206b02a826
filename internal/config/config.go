// Package config loads the h5view YAML configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/h5view/internal/histogram"
	"github.com/robert-malhotra/h5view/internal/mask"
	"github.com/robert-malhotra/h5view/internal/params"
	"github.com/robert-malhotra/h5view/internal/pathfilter"
	"github.com/robert-malhotra/h5view/internal/session"
)

// Config is the full configuration.
type Config struct {
	Listen      string          `yaml:"listen"`
	UploadDir   string          `yaml:"upload_dir"`
	DBPath      string          `yaml:"db_path"`
	MaxUploadMB int             `yaml:"max_upload_mb"`
	Log         LogConfig       `yaml:"log"`
	Validity    ValidityConfig  `yaml:"validity"`
	Histogram   HistogramConfig `yaml:"histogram"`
	Search      SearchConfig    `yaml:"search"`
	Reference   ReferenceConfig `yaml:"reference"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ValidityConfig locates the validity mask dataset.
type ValidityConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// HistogramConfig configures binning.
type HistogramConfig struct {
	Bins int `yaml:"bins"`
}

// SearchConfig configures dataset search.
type SearchConfig struct {
	CaseSensitive bool   `yaml:"case_sensitive"`
	OnInvalid     string `yaml:"on_invalid"` // error | substring
}

// ReferenceConfig configures filter reference resolution.
type ReferenceConfig struct {
	TieBreak string `yaml:"tie_break"` // specific | first
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		UploadDir:   "uploads",
		DBPath:      "h5view.db",
		MaxUploadMB: 512,
		Log:         LogConfig{Level: "info", Format: "text"},
		Validity:    ValidityConfig{Path: mask.DefaultValidityPath, Enabled: true},
		Histogram:   HistogramConfig{Bins: histogram.DefaultBins},
		Search:      SearchConfig{OnInvalid: "error"},
		Reference:   ReferenceConfig{TieBreak: "specific"},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are present and sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload_dir is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported %q (use text or json)", c.Log.Format)
	}
	if c.Validity.Enabled && !strings.HasPrefix(c.Validity.Path, "/") {
		return fmt.Errorf("validity.path must be absolute, got %q", c.Validity.Path)
	}
	if c.Histogram.Bins <= 0 {
		return fmt.Errorf("histogram.bins must be > 0")
	}
	if _, err := pathfilter.ParsePolicy(c.Search.OnInvalid); err != nil {
		return fmt.Errorf("search.on_invalid: %w", err)
	}
	if _, err := params.ParseTieBreak(c.Reference.TieBreak); err != nil {
		return fmt.Errorf("reference.tie_break: %w", err)
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) * 1024 * 1024 }

// Session converts the configuration into session settings. It assumes c is valid.
func (c *Config) Session() session.Settings {
	s := session.Settings{Bins: c.Histogram.Bins}
	if c.Validity.Enabled {
		s.ValidityPath = c.Validity.Path
	}
	if c.Search.CaseSensitive {
		s.Search = append(s.Search, pathfilter.CaseSensitive())
	}
	policy, _ := pathfilter.ParsePolicy(c.Search.OnInvalid)
	s.Search = append(s.Search, pathfilter.OnInvalid(policy))
	s.TieBreak, _ = params.ParseTieBreak(c.Reference.TieBreak)
	return s
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
