// Package config loads, normalizes, and validates Bandstand configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARCHIVE_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: external catalog endpoints and pacing, matching thresholds, and worker
// intervals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
