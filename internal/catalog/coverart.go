package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bandstand/internal/config"
)

// CoverArt is the client for the cover-art archive. It indexes scans by
// release title and label and returns image URLs, never track data.
type CoverArt struct {
	core *core
}

// NewCoverArt creates a cover-art archive client.
func NewCoverArt(cfg config.Catalog, opts ...Option) (*CoverArt, error) {
	core, err := newCore(NameCoverArt, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &CoverArt{core: core}, nil
}

// Catalog returns the stable catalog identifier.
func (c *CoverArt) Catalog() string { return NameCoverArt }

type coverScan struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Label    string `json:"label"`
	Year     int    `json:"year"`
	FrontURL string `json:"front_url"`
}

type coverSearchResponse struct {
	Scans []coverScan `json:"scans"`
}

// SearchCovers queries the scan index by release title, optionally narrowed
// by label and year. Results normalize into candidate records so the
// standard matcher picks the right scan.
func (c *CoverArt) SearchCovers(ctx context.Context, title, label string, year int) ([]CandidateRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title must not be empty")
	}
	params := url.Values{}
	params.Set("title", title)
	if label = strings.TrimSpace(label); label != "" {
		params.Set("label", label)
	}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	var payload coverSearchResponse
	if err := c.core.getJSON(ctx, "search_covers", "/scans/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Scans))
	for _, scan := range payload.Scans {
		records = append(records, CandidateRecord{
			Catalog:    NameCoverArt,
			ExternalID: scan.ID,
			Kind:       "release",
			Title:      scan.Title,
			Artist:     scan.Artist,
			Year:       scan.Year,
			URL:        scan.FrontURL,
		})
	}
	return records, nil
}

// FetchCoverURL resolves a scan id to its front-cover image URL.
func (c *CoverArt) FetchCoverURL(ctx context.Context, externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", errors.New("external id must not be empty")
	}
	var payload coverScan
	path := fmt.Sprintf("/scans/%s", url.PathEscape(externalID))
	if err := c.core.getJSON(ctx, "fetch_cover", path, nil, &payload); err != nil {
		return "", err
	}
	return payload.FrontURL, nil
}
