package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// TypstConfig holds settings for the optional PDF render step.
type TypstConfig struct {
	Enabled     bool   `json:"enabled"`
	Command     string `json:"command"`
	Template    string `json:"template"`
	Parallelism int    `json:"parallelism"`
}

// Config is the top-level configuration for a build or roll run.
type Config struct {
	Input       string       `json:"input"`
	Output      string       `json:"output"`
	N           int          `json:"n"`
	Books       int          `json:"books"`
	Dice        int          `json:"dice"`
	Raw         bool         `json:"raw"`
	Punctuation string       `json:"punctuation"`
	Format      string       `json:"format"`
	MinCount    int          `json:"min_count"`
	Typst       *TypstConfig `json:"typst"`
	LogLevel    string       `json:"log_level"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Output:      "model.json",
		N:           2,
		Books:       1,
		Dice:        10,
		Punctuation: ",.",
		Format:      "json",
		MinCount:    1,
		Typst: &TypstConfig{
			Enabled:     false,
			Command:     "typst",
			Template:    "book.typ",
			Parallelism: 2,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path on top
// of the defaults. An empty path or a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Typst == nil {
		config.Typst = DefaultConfig().Typst
	}
	return config, nil
}

// WriteConfig saves the configuration to path atomically.
func WriteConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports settings that cannot produce a run.
func (c *Config) Validate() error {
	var errs []error
	if c.Books < 1 {
		errs = append(errs, fmt.Errorf("books must be at least 1, got %d", c.Books))
	}
	if c.Dice < 0 {
		errs = append(errs, fmt.Errorf("dice must not be negative, got %d", c.Dice))
	}
	switch c.Format {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Format))
	}
	if c.Typst.Enabled && c.Format != "json" {
		errs = append(errs, errors.New("typst rendering needs json output"))
	}
	return errors.Join(errs...)
}

// Level maps the configured level name to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
