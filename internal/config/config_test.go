package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"task-list/pkg/persist"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TASKS_CONFIG",
		"TASKS_DATA_FILE",
		"TASKS_DATABASE_URL",
		"TASKS_SAVE_MODE",
		"TASKS_SAVED_INDICATOR_MS",
		"TASKS_WINDOW_TITLE",
		"TASKS_LOG_LEVEL",
		"TASKS_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataFile != filepath.Join("data", "tasks.json") {
		t.Errorf("data file = %q", cfg.DataFile)
	}
	if cfg.Mode() != persist.ModeAuto {
		t.Errorf("mode = %q", cfg.Mode())
	}
	if cfg.SavedIndicator() != 2*time.Second {
		t.Errorf("indicator = %v", cfg.SavedIndicator())
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
}

func TestLoadDefaultFileFromWorkingDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `save_mode = "manual"`)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != persist.ModeManual {
		t.Errorf("mode = %q, want manual", cfg.Mode())
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), `
data_file = "from-file.json"
save_mode = "sync"
saved_indicator_ms = 500
window_title = "My tasks"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataFile != "from-file.json" || cfg.Mode() != persist.ModeSync || cfg.SavedIndicatorMS != 500 || cfg.WindowTitle != "My tasks" {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	t.Setenv("TASKS_DATA_FILE", "from-env.json")
	t.Setenv("TASKS_SAVE_MODE", "manual")
	t.Setenv("TASKS_DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("TASKS_SAVED_INDICATOR_MS", "750")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataFile != "from-env.json" || cfg.Mode() != persist.ModeManual || cfg.SavedIndicatorMS != 750 {
		t.Fatalf("env did not override file: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://localhost/tasks" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.WindowTitle != "My tasks" {
		t.Errorf("unset env should keep file value, got %q", cfg.WindowTitle)
	}
}

func TestLoadConfigEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), `data_file = "elsewhere.json"`)
	t.Setenv("TASKS_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataFile != "elsewhere.json" {
		t.Errorf("data file = %q", cfg.DataFile)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		missing bool
		wantErr string
	}{
		{name: "explicit missing file", missing: true, wantErr: "loading config file"},
		{name: "bad toml", content: `save_mode = `, wantErr: "loading config file"},
		{name: "bad mode", content: `save_mode = "sometimes"`, wantErr: "save_mode"},
		{name: "negative indicator", content: `saved_indicator_ms = -1`, wantErr: "saved_indicator_ms"},
		{name: "no storage", content: `data_file = ""`, wantErr: "data_file"},
		{name: "bad log level", content: `log_level = "loud"`, wantErr: "log_level"},
		{name: "bad log format", env: map[string]string{"TASKS_LOG_FORMAT": "yaml"}, wantErr: "log_format"},
		{name: "bad env int", env: map[string]string{"TASKS_SAVED_INDICATOR_MS": "soon"}, wantErr: "TASKS_SAVED_INDICATOR_MS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			path := filepath.Join(dir, "tasks.toml")
			if !tt.missing {
				writeConfig(t, dir, tt.content)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseOnlyIsValid(t *testing.T) {
	cfg := Default()
	cfg.DataFile = ""
	cfg.DatabaseURL = "postgres://localhost/tasks"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
