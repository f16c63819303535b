package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bandstand/internal/config"
)

// Encyclopedia is the client for the artist encyclopedia: biography text and
// the article pages the reference validator scans. It has no release index.
type Encyclopedia struct {
	core *core
}

var _ PageFetcher = (*Encyclopedia)(nil)

// NewEncyclopedia creates an encyclopedia client. The encyclopedia is a
// public API so no key is required.
func NewEncyclopedia(cfg config.Catalog, opts ...Option) (*Encyclopedia, error) {
	core, err := newCore(NameEncyclopedia, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Encyclopedia{core: core}, nil
}

// Catalog returns the stable catalog identifier.
func (e *Encyclopedia) Catalog() string { return NameEncyclopedia }

type encyclopediaArticle struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type encyclopediaSearch struct {
	Articles []encyclopediaArticle `json:"articles"`
}

type encyclopediaPage struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Extract  string `json:"extract"`
	ImageURL string `json:"image_url"`
}

// SearchArtists looks up encyclopedia articles for a musician name.
func (e *Encyclopedia) SearchArtists(ctx context.Context, query string) ([]CandidateRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	var payload encyclopediaSearch
	if err := e.core.getJSON(ctx, "search_artists", "/articles/search", params, &payload); err != nil {
		return nil, err
	}
	records := make([]CandidateRecord, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		records = append(records, CandidateRecord{
			Catalog:    NameEncyclopedia,
			ExternalID: article.Slug,
			Kind:       "artist",
			Title:      article.Title,
		})
	}
	return records, nil
}

// FetchArticle retrieves the structured article: biography extract and the
// lead image URL when the article carries one.
func (e *Encyclopedia) FetchArticle(ctx context.Context, externalID string) (biography, imageURL string, err error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", "", errors.New("external id must not be empty")
	}
	var payload encyclopediaPage
	path := fmt.Sprintf("/articles/%s", url.PathEscape(externalID))
	if err := e.core.getJSON(ctx, "fetch_article", path, nil, &payload); err != nil {
		return "", "", err
	}
	return payload.Extract, payload.ImageURL, nil
}

// FetchPage retrieves the rendered article text for reference validation.
func (e *Encyclopedia) FetchPage(ctx context.Context, externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", errors.New("external id must not be empty")
	}
	path := fmt.Sprintf("/articles/%s/page", url.PathEscape(externalID))
	return e.core.getText(ctx, "fetch_page", path, nil)
}
