package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bandstand/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	t.Setenv("ARCHIVE_API_KEY", "env-archive-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "bandstand")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7531" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Archive.APIKey != "env-archive-key" {
		t.Fatalf("expected archive key from env, got %q", cfg.Archive.APIKey)
	}
	if cfg.Archive.BaseURL != config.Default().Archive.BaseURL {
		t.Fatalf("unexpected archive base url: %q", cfg.Archive.BaseURL)
	}
	if cfg.Matching.Threshold != config.Default().Matching.Threshold {
		t.Fatalf("unexpected matching threshold: %v", cfg.Matching.Threshold)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "bandstand.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bandstand.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[archive]",
		`base_url = "https://archive.test/"`,
		"min_interval_ms = 250",
		"[matching]",
		"threshold = 0.8",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Archive.BaseURL != "https://archive.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Archive.BaseURL)
	}
	if cfg.Archive.MinIntervalMS != 250 {
		t.Fatalf("unexpected min interval: %d", cfg.Archive.MinIntervalMS)
	}
	if cfg.Matching.Threshold != 0.8 {
		t.Fatalf("unexpected threshold: %v", cfg.Matching.Threshold)
	}
	// Untouched sections keep defaults.
	if cfg.Streambox.MinIntervalMS != 1000 {
		t.Fatalf("unexpected streambox interval: %d", cfg.Streambox.MinIntervalMS)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold above one", func(c *config.Config) { c.Matching.Threshold = 1.5 }},
		{"negative duration window", func(c *config.Config) { c.Matching.DurationWindowSecs = -1 }},
		{"zero poll interval", func(c *config.Config) { c.Workflow.QueuePollInterval = 0 }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	written, err := config.CreateSample(path)
	if err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if written != path {
		t.Fatalf("unexpected written path: %q", written)
	}
	if _, err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
