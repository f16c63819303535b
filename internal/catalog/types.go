package catalog

import (
	"context"

	"bandstand/internal/matching"
)

// Catalog names used for external references and logging. These are stable
// identifiers persisted in the database, not display strings.
const (
	NameArchive      = "archive"
	NameStreambox    = "streambox"
	NameWavelength   = "wavelength"
	NameEncyclopedia = "encyclopedia"
	NameCoverArt     = "cover_art"
)

// CandidateRecord is the common shape every catalog client normalizes its
// search payloads into before they reach the matcher. Kind distinguishes
// releases, artists and tracks.
type CandidateRecord struct {
	Catalog      string
	ExternalID   string
	Kind         string
	Title        string
	Artist       string
	Year         int
	DurationSecs int
	URL          string
}

// MatchCandidate projects the record into the matcher's input shape.
func (r CandidateRecord) MatchCandidate() matching.Candidate {
	return matching.Candidate{
		ExternalID: r.ExternalID,
		Title:      r.Title,
		Artist:     r.Artist,
		Year:       r.Year,
	}
}

// TrackRecord is one entry of a release's track list.
type TrackRecord struct {
	ExternalID   string
	Title        string
	Position     int
	DurationSecs int
}

// DetailRecord is the deep-lookup payload for a single release. RecordedOn
// is free text as catalogs report it (single dates, ranges, "circa" forms);
// it is stored verbatim.
type DetailRecord struct {
	Catalog    string
	ExternalID string
	Title      string
	Artist     string
	Label      string
	Year       int
	RecordedOn string
	CoverURL   string
	Tracks     []TrackRecord
}

// TrackCandidates projects the track list into matcher input.
func (d *DetailRecord) TrackCandidates() []matching.Candidate {
	out := make([]matching.Candidate, 0, len(d.Tracks))
	for _, track := range d.Tracks {
		out = append(out, matching.Candidate{ExternalID: track.ExternalID, Title: track.Title})
	}
	return out
}

// Searcher is the search surface shared by catalogs that index releases and
// artists.
type Searcher interface {
	Catalog() string
	SearchReleases(ctx context.Context, query string) ([]CandidateRecord, error)
	SearchArtists(ctx context.Context, query string) ([]CandidateRecord, error)
}

// ReleaseFetcher performs deep release lookups (full track lists).
type ReleaseFetcher interface {
	FetchRelease(ctx context.Context, externalID string) (*DetailRecord, error)
}

// PageFetcher retrieves the raw page text behind an external reference. The
// reference validator scans this text for disambiguation and placeholder
// markers.
type PageFetcher interface {
	FetchPage(ctx context.Context, externalID string) (string, error)
}
