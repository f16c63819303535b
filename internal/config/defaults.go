package config

const (
	defaultDataDir = "~/.local/share/bandstand"
	defaultLogDir  = "~/.local/share/bandstand/logs"
	defaultAPIBind = "127.0.0.1:7531"

	defaultArchiveBaseURL      = "https://api.jazzdisco.example/v1"
	defaultStreamboxBaseURL    = "https://api.streambox.example/v2"
	defaultWavelengthBaseURL   = "https://api.wavelength.example/v1"
	defaultEncyclopediaBaseURL = "https://encyclopedia.example/api"
	defaultCoverArtBaseURL     = "https://covers.example/api"

	defaultCatalogTimeoutSecs = 10
	defaultMinIntervalMS      = 1000

	defaultMatchThreshold     = 0.62
	defaultPersonnelOverlap   = 0.5
	defaultDurationWindowSecs = 5

	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5

	defaultLogFormat = ""
	defaultLogLevel  = "info"
)

func defaultCatalog(baseURL string) Catalog {
	return Catalog{
		BaseURL:       baseURL,
		MinIntervalMS: defaultMinIntervalMS,
		TimeoutSecs:   defaultCatalogTimeoutSecs,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Archive:      defaultCatalog(defaultArchiveBaseURL),
		Streambox:    defaultCatalog(defaultStreamboxBaseURL),
		Wavelength:   defaultCatalog(defaultWavelengthBaseURL),
		Encyclopedia: defaultCatalog(defaultEncyclopediaBaseURL),
		CoverArt:     defaultCatalog(defaultCoverArtBaseURL),
		Matching: Matching{
			Threshold:          defaultMatchThreshold,
			PersonnelOverlap:   defaultPersonnelOverlap,
			DurationWindowSecs: defaultDurationWindowSecs,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
