package testsupport

import (
	"path/filepath"
	"testing"

	"bandstand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Archive.APIKey = "test"
	cfg.Streambox.APIKey = "test"
	cfg.Wavelength.APIKey = "test"
	cfg.Archive.MinIntervalMS = 0
	cfg.Streambox.MinIntervalMS = 0
	cfg.Wavelength.MinIntervalMS = 0
	cfg.Encyclopedia.MinIntervalMS = 0
	cfg.CoverArt.MinIntervalMS = 0
	cfg.Workflow.QueuePollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCatalogURL points one named catalog section at a test server.
func WithCatalogURL(name, baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		switch name {
		case "archive":
			cfg.Archive.BaseURL = baseURL
		case "streambox":
			cfg.Streambox.BaseURL = baseURL
		case "wavelength":
			cfg.Wavelength.BaseURL = baseURL
		case "encyclopedia":
			cfg.Encyclopedia.BaseURL = baseURL
		case "cover_art":
			cfg.CoverArt.BaseURL = baseURL
		}
	}
}

// WithMatchingThreshold overrides the fuzzy-match threshold.
func WithMatchingThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.Threshold = threshold
	}
}
