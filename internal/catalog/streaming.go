package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bandstand/internal/config"
)

// Streambox is the client for the first streaming catalog. Its API exposes
// albums and tracks with millisecond durations and artist objects.
type Streambox struct {
	core *core
}

var (
	_ Searcher       = (*Streambox)(nil)
	_ ReleaseFetcher = (*Streambox)(nil)
)

// NewStreambox creates a streambox client.
func NewStreambox(cfg config.Catalog, opts ...Option) (*Streambox, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("streambox api key required")
	}
	core, err := newCore(NameStreambox, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Streambox{core: core}, nil
}

// Catalog returns the stable catalog identifier.
func (s *Streambox) Catalog() string { return NameStreambox }

type streamboxArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type streamboxAlbum struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Artists     []streamboxArtistRef `json:"artists"`
	ReleaseDate string               `json:"release_date"`
}

type streamboxAlbumSearch struct {
	Albums struct {
		Items []streamboxAlbum `json:"items"`
	} `json:"albums"`
}

type streamboxArtistSearch struct {
	Artists struct {
		Items []streamboxArtistRef `json:"items"`
	} `json:"artists"`
}

type streamboxTrack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TrackNumber int    `json:"track_number"`
	DurationMS  int    `json:"duration_ms"`
}

type streamboxAlbumDetail struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Artists     []streamboxArtistRef `json:"artists"`
	Label       string               `json:"label"`
	ReleaseDate string               `json:"release_date"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
	Tracks struct {
		Items []streamboxTrack `json:"items"`
	} `json:"tracks"`
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}

func firstArtistName(artists []streamboxArtistRef) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

// SearchReleases queries streambox for albums.
func (s *Streambox) SearchReleases(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "album")
	var payload streamboxAlbumSearch
	if err := s.core.getJSON(ctx, "search_releases", "/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Albums.Items))
	for _, album := range payload.Albums.Items {
		records = append(records, CandidateRecord{
			Catalog:    NameStreambox,
			ExternalID: album.ID,
			Kind:       "release",
			Title:      album.Name,
			Artist:     firstArtistName(album.Artists),
			Year:       yearFromDate(album.ReleaseDate),
		})
	}
	return records, nil
}

// SearchArtists queries streambox for artists.
func (s *Streambox) SearchArtists(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	var payload streamboxArtistSearch
	if err := s.core.getJSON(ctx, "search_artists", "/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Artists.Items))
	for _, artist := range payload.Artists.Items {
		records = append(records, CandidateRecord{
			Catalog:    NameStreambox,
			ExternalID: artist.ID,
			Kind:       "artist",
			Title:      artist.Name,
		})
	}
	return records, nil
}

// FetchRelease retrieves an album with its full track list.
func (s *Streambox) FetchRelease(ctx context.Context, externalID string) (*DetailRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.New("external id must not be empty")
	}
	var payload streamboxAlbumDetail
	path := fmt.Sprintf("/albums/%s", url.PathEscape(externalID))
	if err := s.core.getJSON(ctx, "fetch_release", path, nil, &payload); err != nil {
		return nil, err
	}
	detail := &DetailRecord{
		Catalog:    NameStreambox,
		ExternalID: payload.ID,
		Title:      payload.Name,
		Artist:     firstArtistName(payload.Artists),
		Label:      payload.Label,
		Year:       yearFromDate(payload.ReleaseDate),
	}
	if len(payload.Images) > 0 {
		detail.CoverURL = payload.Images[0].URL
	}
	for _, track := range payload.Tracks.Items {
		detail.Tracks = append(detail.Tracks, TrackRecord{
			ExternalID:   track.ID,
			Title:        track.Name,
			Position:     track.TrackNumber,
			DurationSecs: track.DurationMS / 1000,
		})
	}
	return detail, nil
}

// Wavelength is the client for the second streaming catalog. Its payloads
// are flatter than streambox's: one artist string per album and durations
// already in seconds.
type Wavelength struct {
	core *core
}

var (
	_ Searcher       = (*Wavelength)(nil)
	_ ReleaseFetcher = (*Wavelength)(nil)
)

// NewWavelength creates a wavelength client.
func NewWavelength(cfg config.Catalog, opts ...Option) (*Wavelength, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("wavelength api key required")
	}
	core, err := newCore(NameWavelength, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Wavelength{core: core}, nil
}

// Catalog returns the stable catalog identifier.
func (w *Wavelength) Catalog() string { return NameWavelength }

type wavelengthAlbum struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	Year       int    `json:"year"`
	CoverURL   string `json:"cover_url"`
}

type wavelengthAlbumSearch struct {
	Results []wavelengthAlbum `json:"results"`
}

type wavelengthArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wavelengthArtistSearch struct {
	Results []wavelengthArtist `json:"results"`
}

type wavelengthTrack struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Index        int    `json:"index"`
	DurationSecs int    `json:"duration"`
}

type wavelengthAlbumDetail struct {
	wavelengthAlbum
	Label  string            `json:"label"`
	Tracks []wavelengthTrack `json:"tracks"`
}

// SearchReleases queries wavelength for albums.
func (w *Wavelength) SearchReleases(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	var payload wavelengthAlbumSearch
	if err := w.core.getJSON(ctx, "search_releases", "/catalog/albums", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Results))
	for _, album := range payload.Results {
		records = append(records, CandidateRecord{
			Catalog:    NameWavelength,
			ExternalID: album.ID,
			Kind:       "release",
			Title:      album.Title,
			Artist:     album.ArtistName,
			Year:       album.Year,
			URL:        album.CoverURL,
		})
	}
	return records, nil
}

// SearchArtists queries wavelength for artists.
func (w *Wavelength) SearchArtists(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	var payload wavelengthArtistSearch
	if err := w.core.getJSON(ctx, "search_artists", "/catalog/artists", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Results))
	for _, artist := range payload.Results {
		records = append(records, CandidateRecord{
			Catalog:    NameWavelength,
			ExternalID: artist.ID,
			Kind:       "artist",
			Title:      artist.Name,
		})
	}
	return records, nil
}

// FetchRelease retrieves an album with its full track list.
func (w *Wavelength) FetchRelease(ctx context.Context, externalID string) (*DetailRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.New("external id must not be empty")
	}
	var payload wavelengthAlbumDetail
	path := fmt.Sprintf("/catalog/albums/%s", url.PathEscape(externalID))
	if err := w.core.getJSON(ctx, "fetch_release", path, nil, &payload); err != nil {
		return nil, err
	}
	detail := &DetailRecord{
		Catalog:    NameWavelength,
		ExternalID: payload.ID,
		Title:      payload.Title,
		Artist:     payload.ArtistName,
		Label:      payload.Label,
		Year:       payload.Year,
		CoverURL:   payload.CoverURL,
	}
	for _, track := range payload.Tracks {
		detail.Tracks = append(detail.Tracks, TrackRecord{
			ExternalID:   track.ID,
			Title:        track.Title,
			Position:     track.Index,
			DurationSecs: track.DurationSecs,
		})
	}
	return detail, nil
}
