// Package catalog provides HTTP clients for the external music catalogs:
// the primary discographic archive, the streambox and wavelength streaming
// services, the artist encyclopedia, and the cover-art archive. All five
// share one HTTP core with per-catalog request pacing, and all normalize
// their payloads into common candidate and detail shapes at the boundary so
// nothing catalog-specific leaks into matching or orchestration.
package catalog
