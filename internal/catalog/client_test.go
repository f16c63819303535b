package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bandstand/internal/catalog"
	"bandstand/internal/config"
	"bandstand/internal/services"
)

func testCatalogConfig(baseURL string) config.Catalog {
	return config.Catalog{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		TimeoutSecs: 2,
	}
}

func TestArchiveSearchReleases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "Kind of Blue" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api key not forwarded, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"releases":[{"id":"ses-100","title":"Kind of Blue","leader":"Miles Davis","label":"Columbia","year":1959}]}`))
	}))
	defer server.Close()

	client, err := catalog.NewArchive(testCatalogConfig(server.URL))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	records, err := client.SearchReleases(context.Background(), "Kind of Blue")
	if err != nil {
		t.Fatalf("SearchReleases: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.Catalog != catalog.NameArchive || record.ExternalID != "ses-100" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Artist != "Miles Davis" || record.Year != 1959 {
		t.Fatalf("payload fields lost in normalization: %+v", record)
	}
}

func TestArchiveFetchReleaseTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/ses-100" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ses-100","title":"Kind of Blue","leader":"Miles Davis","recorded_on":"1959-03-02","tracks":[{"id":"trk-1","title":"So What","position":1,"duration_secs":565}]}`))
	}))
	defer server.Close()

	client, err := catalog.NewArchive(testCatalogConfig(server.URL))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	detail, err := client.FetchRelease(context.Background(), "ses-100")
	if err != nil {
		t.Fatalf("FetchRelease: %v", err)
	}
	if detail.RecordedOn != "1959-03-02" {
		t.Fatalf("recorded_on lost: %+v", detail)
	}
	if len(detail.Tracks) != 1 || detail.Tracks[0].Title != "So What" || detail.Tracks[0].DurationSecs != 565 {
		t.Fatalf("unexpected tracks: %+v", detail.Tracks)
	}
}

func TestStreamboxConvertsDurations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"alb-7","name":"Somethin' Else","artists":[{"id":"art-1","name":"Cannonball Adderley"}],"release_date":"1958-08-01","tracks":{"items":[{"id":"t-1","name":"Autumn Leaves","track_number":1,"duration_ms":651000}]}}`))
	}))
	defer server.Close()

	client, err := catalog.NewStreambox(testCatalogConfig(server.URL))
	if err != nil {
		t.Fatalf("NewStreambox: %v", err)
	}
	detail, err := client.FetchRelease(context.Background(), "alb-7")
	if err != nil {
		t.Fatalf("FetchRelease: %v", err)
	}
	if detail.Year != 1958 {
		t.Fatalf("expected year 1958, got %d", detail.Year)
	}
	if detail.Tracks[0].DurationSecs != 651 {
		t.Fatalf("duration not converted to seconds: %d", detail.Tracks[0].DurationSecs)
	}
}

func TestServerErrorWrapsExternalUnavailable(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := catalog.NewWavelength(testCatalogConfig(server.URL), catalog.WithRetryBackoff(0))
	if err != nil {
		t.Fatalf("NewWavelength: %v", err)
	}
	_, err = client.SearchReleases(context.Background(), "Moanin")
	if !errors.Is(err, services.ErrExternalUnavailable) {
		t.Fatalf("expected ErrExternalUnavailable, got %v", err)
	}
	if !catalog.IsRetriable(err) {
		t.Fatalf("502 should be retriable: %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("persistent 502 should be retried, got %d attempts", got)
	}
}

func TestTransientErrorRecoversAfterRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client, err := catalog.NewWavelength(testCatalogConfig(server.URL), catalog.WithRetryBackoff(0))
	if err != nil {
		t.Fatalf("NewWavelength: %v", err)
	}
	records, err := client.SearchReleases(context.Background(), "Moanin")
	if err != nil {
		t.Fatalf("search should recover after transient failures: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty", records)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := catalog.NewWavelength(testCatalogConfig(server.URL), catalog.WithRetryBackoff(0))
	if err != nil {
		t.Fatalf("NewWavelength: %v", err)
	}
	if _, err = client.SearchReleases(context.Background(), "Moanin"); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", got)
	}
}

func TestNewClientsRequireKeys(t *testing.T) {
	if _, err := catalog.NewArchive(config.Catalog{BaseURL: "http://example.test"}); err == nil {
		t.Fatal("archive without key should fail")
	}
	if _, err := catalog.NewStreambox(config.Catalog{BaseURL: "http://example.test"}); err == nil {
		t.Fatal("streambox without key should fail")
	}
	if _, err := catalog.NewEncyclopedia(config.Catalog{BaseURL: "http://example.test"}); err != nil {
		t.Fatalf("encyclopedia should not require a key: %v", err)
	}
	if _, err := catalog.NewCoverArt(config.Catalog{}); err == nil {
		t.Fatal("missing base url should fail")
	}
}

func TestPacerSpacesRequests(t *testing.T) {
	pacer := catalog.NewPacer(30 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("three paced calls finished too fast: %v", elapsed)
	}
}

func TestPacerHonorsCancellation(t *testing.T) {
	pacer := catalog.NewPacer(time.Minute)
	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pacer.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetriable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("archive search returned 429"), true},
		{"server error", errors.New("wavelength returned 503 (latency=1s)"), true},
		{"timeout token", errors.New("context deadline exceeded"), true},
		{"permanent", errors.New("archive search returned 404"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := catalog.IsRetriable(tc.err); got != tc.want {
				t.Fatalf("IsRetriable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
