package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog(&c.Archive, "ARCHIVE_API_KEY", defaultArchiveBaseURL)
	c.normalizeCatalog(&c.Streambox, "STREAMBOX_API_KEY", defaultStreamboxBaseURL)
	c.normalizeCatalog(&c.Wavelength, "WAVELENGTH_API_KEY", defaultWavelengthBaseURL)
	c.normalizeCatalog(&c.Encyclopedia, "", defaultEncyclopediaBaseURL)
	c.normalizeCatalog(&c.CoverArt, "", defaultCoverArtBaseURL)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCatalog(cat *Catalog, envKey, defaultBaseURL string) {
	cat.BaseURL = strings.TrimRight(strings.TrimSpace(cat.BaseURL), "/")
	if cat.BaseURL == "" {
		cat.BaseURL = strings.TrimRight(defaultBaseURL, "/")
	}
	cat.APIKey = strings.TrimSpace(cat.APIKey)
	if cat.APIKey == "" && envKey != "" {
		if value, ok := os.LookupEnv(envKey); ok {
			cat.APIKey = strings.TrimSpace(value)
		}
	}
	if cat.MinIntervalMS <= 0 {
		cat.MinIntervalMS = defaultMinIntervalMS
	}
	if cat.TimeoutSecs <= 0 {
		cat.TimeoutSecs = defaultCatalogTimeoutSecs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
