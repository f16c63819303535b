package preflight

import (
	"context"

	"bandstand/internal/config"
)

// Result reports the outcome of a single preflight check. Fatal marks
// checks the daemon cannot start without; catalog reachability is advisory
// since the research phases degrade gracefully when a source is down.
type Result struct {
	Name   string
	Passed bool
	Fatal  bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Catalogs without a configured base URL are skipped rather than failed,
// since an operator may deliberately run with a subset of sources.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		fatal(CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)),
		fatal(CheckDirectoryAccess("Log directory", cfg.Paths.LogDir)),
		fatal(CheckFreeSpace("Data directory free space", cfg.Paths.DataDir)),
	}

	catalogs := []struct {
		name        string
		cfg         config.Catalog
		keyRequired bool
	}{
		{"Archive catalog", cfg.Archive, true},
		{"Streambox catalog", cfg.Streambox, true},
		{"Wavelength catalog", cfg.Wavelength, true},
		{"Encyclopedia", cfg.Encyclopedia, false},
		{"Cover-art archive", cfg.CoverArt, false},
	}
	for _, catalog := range catalogs {
		if catalog.cfg.BaseURL == "" {
			continue
		}
		results = append(results, CheckCatalog(ctx, catalog.name, catalog.cfg, catalog.keyRequired))
	}

	return results
}

func fatal(result Result) Result {
	result.Fatal = true
	return result
}

// AllPassed reports whether every result in the set passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
