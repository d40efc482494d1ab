// Package config loads task-list settings from defaults, an optional TOML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"task-list/internal/logging"
	"task-list/pkg/persist"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "tasks.toml"

// Config holds the application settings.
type Config struct {
	DataFile         string `toml:"data_file"`
	DatabaseURL      string `toml:"database_url"`
	SaveMode         string `toml:"save_mode"`
	SavedIndicatorMS int    `toml:"saved_indicator_ms"`
	WindowTitle      string `toml:"window_title"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataFile:         persist.DefaultPath,
		SaveMode:         string(persist.ModeAuto),
		SavedIndicatorMS: 2000,
		WindowTitle:      "Tasks",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds a Config. path names a TOML file; if empty, TASKS_CONFIG is
// used, then DefaultFile if it exists. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TASKS_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultFile
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TASKS_DATA_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("TASKS_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TASKS_SAVE_MODE"); v != "" {
		cfg.SaveMode = v
	}
	if v := os.Getenv("TASKS_SAVED_INDICATOR_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKS_SAVED_INDICATOR_MS: %w", err)
		}
		cfg.SavedIndicatorMS = n
	}
	if v := os.Getenv("TASKS_WINDOW_TITLE"); v != "" {
		cfg.WindowTitle = v
	}
	if v := os.Getenv("TASKS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := persist.ParseMode(c.SaveMode); err != nil {
		return fmt.Errorf("save_mode: %w", err)
	}
	if c.DataFile == "" && c.DatabaseURL == "" {
		return errors.New("data_file: must be set when database_url is empty")
	}
	if c.SavedIndicatorMS < 0 {
		return fmt.Errorf("saved_indicator_ms: must not be negative, got %d", c.SavedIndicatorMS)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := logging.ParseFormatter(c.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	return nil
}

// Mode returns the parsed save mode.
func (c *Config) Mode() persist.Mode {
	m, err := persist.ParseMode(c.SaveMode)
	if err != nil {
		return persist.ModeAuto
	}
	return m
}

// SavedIndicator is how long the UI shows "Saved" after a successful save.
func (c *Config) SavedIndicator() time.Duration {
	return time.Duration(c.SavedIndicatorMS) * time.Millisecond
}
