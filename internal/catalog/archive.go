package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bandstand/internal/config"
)

// Archive is the client for the primary discographic catalog. It carries the
// richest payloads: sessions with labels, recording dates and full track
// lists, plus the session pages the reference validator scans.
type Archive struct {
	core *core
}

var (
	_ Searcher       = (*Archive)(nil)
	_ ReleaseFetcher = (*Archive)(nil)
	_ PageFetcher    = (*Archive)(nil)
)

// NewArchive creates an archive catalog client.
func NewArchive(cfg config.Catalog, opts ...Option) (*Archive, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("archive api key required")
	}
	core, err := newCore(NameArchive, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Archive{core: core}, nil
}

// Catalog returns the stable catalog identifier.
func (a *Archive) Catalog() string { return NameArchive }

type archiveRelease struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Leader   string `json:"leader"`
	Label    string `json:"label"`
	Year     int    `json:"year"`
	PageSlug string `json:"page_slug"`
}

type archiveSearchResponse struct {
	Releases []archiveRelease `json:"releases"`
}

type archiveArtist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active string `json:"active_years"`
}

type archiveArtistResponse struct {
	Artists []archiveArtist `json:"artists"`
}

type archiveTrack struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Position     int    `json:"position"`
	DurationSecs int    `json:"duration_secs"`
}

type archiveDetailResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Leader     string         `json:"leader"`
	Label      string         `json:"label"`
	Year       int            `json:"year"`
	RecordedOn string         `json:"recorded_on"`
	Tracks     []archiveTrack `json:"tracks"`
}

// SearchReleases queries the archive's session index.
func (a *Archive) SearchReleases(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	var payload archiveSearchResponse
	if err := a.core.getJSON(ctx, "search_releases", "/sessions/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Releases))
	for _, release := range payload.Releases {
		records = append(records, CandidateRecord{
			Catalog:    NameArchive,
			ExternalID: release.ID,
			Kind:       "release",
			Title:      release.Title,
			Artist:     release.Leader,
			Year:       release.Year,
			URL:        release.PageSlug,
		})
	}
	return records, nil
}

// SearchArtists queries the archive's musician index.
func (a *Archive) SearchArtists(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	var payload archiveArtistResponse
	if err := a.core.getJSON(ctx, "search_artists", "/musicians/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Artists))
	for _, artist := range payload.Artists {
		records = append(records, CandidateRecord{
			Catalog:    NameArchive,
			ExternalID: artist.ID,
			Kind:       "artist",
			Title:      artist.Name,
		})
	}
	return records, nil
}

// FetchRelease retrieves a session's full detail including its track list.
func (a *Archive) FetchRelease(ctx context.Context, externalID string) (*DetailRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.New("external id must not be empty")
	}
	var payload archiveDetailResponse
	path := fmt.Sprintf("/sessions/%s", url.PathEscape(externalID))
	if err := a.core.getJSON(ctx, "fetch_release", path, nil, &payload); err != nil {
		return nil, err
	}
	detail := &DetailRecord{
		Catalog:    NameArchive,
		ExternalID: payload.ID,
		Title:      payload.Title,
		Artist:     payload.Leader,
		Label:      payload.Label,
		Year:       payload.Year,
		RecordedOn: payload.RecordedOn,
	}
	for _, track := range payload.Tracks {
		detail.Tracks = append(detail.Tracks, TrackRecord{
			ExternalID:   track.ID,
			Title:        track.Title,
			Position:     track.Position,
			DurationSecs: track.DurationSecs,
		})
	}
	return detail, nil
}

// FetchPage retrieves the rendered session page for reference validation.
func (a *Archive) FetchPage(ctx context.Context, externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", errors.New("external id must not be empty")
	}
	path := fmt.Sprintf("/sessions/%s/page", url.PathEscape(externalID))
	return a.core.getText(ctx, "fetch_page", path, nil)
}
