package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCatalogs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMatching() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return errors.New("matching.threshold must be between 0 and 1")
	}
	if c.Matching.PersonnelOverlap < 0 || c.Matching.PersonnelOverlap > 1 {
		return errors.New("matching.personnel_overlap must be between 0 and 1")
	}
	if c.Matching.DurationWindowSecs < 0 {
		return errors.New("matching.duration_window_secs must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) validateCatalogs() error {
	catalogs := map[string]Catalog{
		"archive":      c.Archive,
		"streambox":    c.Streambox,
		"wavelength":   c.Wavelength,
		"encyclopedia": c.Encyclopedia,
		"cover_art":    c.CoverArt,
	}
	for name, cat := range catalogs {
		if cat.BaseURL == "" {
			return fmt.Errorf("%s.base_url must be set", name)
		}
		if cat.MinIntervalMS <= 0 {
			return fmt.Errorf("%s.min_interval_ms must be positive", name)
		}
		if cat.TimeoutSecs <= 0 {
			return fmt.Errorf("%s.timeout_secs must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
