// Package config holds the exporter configuration: built-in defaults, an
// optional YAML file layered over them, and validation.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/FocuswithJustin/TorahExport/core/errors"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
)

// Export modes.
const (
	ModeFull     = "full"
	ModeOptimize = "optimize"
	ModeAll      = "all"
)

// Default values.
const (
	DefaultDatabase     = "torah.db"
	DefaultOutputDir    = "torah_json_export"
	DefaultCodec        = "gzip"
	DefaultPreviewRunes = 50
)

// Config is the complete exporter configuration.
type Config struct {
	Database  string `yaml:"database"`
	OutputDir string `yaml:"output_dir"`
	Mode      string `yaml:"mode"`

	// Emitters overrides Mode when non-empty.
	Emitters []string `yaml:"emitters"`

	Codec        string `yaml:"codec"`
	Jobs         int    `yaml:"jobs"`
	PreviewRunes int    `yaml:"preview_runes"`
	Clean        bool   `yaml:"clean"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:     DefaultDatabase,
		OutputDir:    DefaultOutputDir,
		Mode:         ModeFull,
		Codec:        DefaultCodec,
		Jobs:         1,
		PreviewRunes: DefaultPreviewRunes,
		Clean:        true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, apperrors.NewIO("read config", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, apperrors.NewValidation("config", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field. Emitter names are checked by the pipeline,
// which owns the emitter registry.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return apperrors.NewValidation("database", "must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return apperrors.NewValidation("output_dir", "must not be empty")
	}
	switch c.Mode {
	case ModeFull, ModeOptimize, ModeAll:
	default:
		return apperrors.NewValidation("mode", fmt.Sprintf("unknown mode %q", c.Mode))
	}
	switch c.Codec {
	case "gzip", "xz", "zstd":
	default:
		return apperrors.NewValidation("codec", fmt.Sprintf("unknown codec %q", c.Codec))
	}
	if c.Jobs < 1 {
		return apperrors.NewValidation("jobs", "must be at least 1")
	}
	if c.PreviewRunes < 0 {
		return apperrors.NewValidation("preview_runes", "must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return apperrors.NewValidation("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return apperrors.NewValidation("log.format", err.Error())
	}
	return nil
}
