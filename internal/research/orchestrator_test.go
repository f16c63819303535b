package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bandstand/internal/catalog"
	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/testsupport"
)

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode payload: %v", err)
	}
}

// archiveFixture serves two sessions for the song query: the first hit does
// not contain the song, so the importer has to fall through to the second.
func archiveFixture(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"releases": []map[string]any{
				{"id": "arc-100", "title": "Milestones", "leader": "Miles Davis", "label": "Columbia", "year": 1958},
				{"id": "arc-200", "title": "Kind of Blue", "leader": "Miles Davis", "label": "Columbia", "year": 1959},
			},
		})
	})
	mux.HandleFunc("/sessions/arc-100", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "arc-100", "title": "Milestones", "leader": "Miles Davis",
			"label": "Columbia", "year": 1958, "recorded_on": "April 2, 1958",
			"tracks": []map[string]any{
				{"id": "arc-100-1", "title": "Dr. Jekyll", "position": 1, "duration_secs": 352},
			},
		})
	})
	mux.HandleFunc("/sessions/arc-200", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "arc-200", "title": "Kind of Blue", "leader": "Miles Davis",
			"label": "Columbia", "year": 1959, "recorded_on": "March 2, 1959",
			"tracks": []map[string]any{
				{"id": "arc-200-1", "title": "So What", "position": 1, "duration_secs": 545},
				{"id": "arc-200-2", "title": "Freddie Freeloader", "position": 2, "duration_secs": 585},
			},
		})
	})
	return mux
}

func streamboxFixture(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"albums": map[string]any{
				"items": []map[string]any{
					{"id": "sb-9", "name": "Kind of Blue",
						"artists":      []map[string]any{{"id": "sb-art-1", "name": "Miles Davis"}},
						"release_date": "1959-08-17"},
				},
			},
		})
	})
	mux.HandleFunc("/albums/sb-9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "sb-9", "name": "Kind of Blue",
			"artists":      []map[string]any{{"id": "sb-art-1", "name": "Miles Davis"}},
			"label":        "Columbia",
			"release_date": "1959-08-17",
			"images":       []map[string]any{{"url": "https://img.streambox.example/kob.jpg"}},
			"tracks": map[string]any{
				"items": []map[string]any{
					{"id": "sb-9-1", "name": "So What", "track_number": 1, "duration_ms": 545000},
				},
			},
		})
	})
	return mux
}

func wavelengthFixture(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/albums", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{"id": "wl-3", "title": "Kind of Blue", "artist_name": "Miles Davis", "year": 1959},
			},
		})
	})
	mux.HandleFunc("/catalog/albums/wl-3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "wl-3", "title": "Kind of Blue", "artist_name": "Miles Davis",
			"year": 1959, "label": "Columbia",
			"tracks": []map[string]any{
				{"id": "wl-3-1", "title": "So What", "index": 1, "duration": 545},
			},
		})
	})
	return mux
}

func encyclopediaFixture(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/articles/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"articles": []map[string]any{
				{"slug": "miles-davis", "title": "Miles Davis"},
			},
		})
	})
	mux.HandleFunc("/articles/miles-davis", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"slug": "miles-davis", "title": "Miles Davis",
			"extract":   "Miles Dewey Davis III was an American trumpeter and bandleader.",
			"image_url": "https://enc.example/miles.jpg",
		})
	})
	return mux
}

func coverArtFixture(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scans/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"scans": []map[string]any{
				{"id": "cov-1", "title": "Kind of Blue", "artist": "Miles Davis",
					"label": "Columbia", "year": 1959,
					"front_url": "https://covers.example/kob-front.jpg"},
			},
		})
	})
	mux.HandleFunc("/scans/cov-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "cov-1", "front_url": "https://covers.example/kob-front.jpg",
		})
	})
	return mux
}

func fixtureConfig(t *testing.T, overrides map[string]http.Handler) *config.Config {
	t.Helper()
	handlers := map[string]http.Handler{
		catalog.NameArchive:      archiveFixture(t),
		catalog.NameStreambox:    streamboxFixture(t),
		catalog.NameWavelength:   wavelengthFixture(t),
		catalog.NameEncyclopedia: encyclopediaFixture(t),
		catalog.NameCoverArt:     coverArtFixture(t),
	}
	for name, handler := range overrides {
		handlers[name] = handler
	}

	opts := make([]testsupport.ConfigOption, 0, len(handlers))
	for name, handler := range handlers {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		opts = append(opts, testsupport.WithCatalogURL(name, server.URL))
	}
	return testsupport.NewConfig(t, opts...)
}

func waitForJob(t *testing.T, store *Store, id int64) *Job {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %d did not finish in time", id)
	return nil
}

func TestOrchestratorEnrichesSongAcrossCatalogs(t *testing.T) {
	cfg := fixtureConfig(t, nil)
	lib, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	defer lib.Close()
	ctx := context.Background()

	song, err := lib.CreateSong(ctx, "So What", "Miles Davis", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}

	runner, err := NewRunner(cfg, lib, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	orchestrator := NewOrchestrator(cfg, lib, runner, nil)

	job, err := orchestrator.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := orchestrator.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer orchestrator.Stop()

	done := waitForJob(t, orchestrator.Jobs(), job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("job status = %q (%s), want completed", done.Status, done.ErrorMessage)
	}
	if len(done.FailedPhases) != 0 {
		t.Fatalf("failed phases = %v, want none", done.FailedPhases)
	}

	recordings, err := lib.RecordingsForSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("recordings for song: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("len(recordings) = %d, want 1", len(recordings))
	}
	recording := recordings[0]
	if recording.RecordedOn != "March 2, 1959" {
		t.Fatalf("recorded_on = %q", recording.RecordedOn)
	}
	if recording.DurationSecs != 545 {
		t.Fatalf("duration = %d, want 545", recording.DurationSecs)
	}

	// The rest of the matched session imports alongside the requested song.
	sibling, err := lib.FindSongByTitle(ctx, "Freddie Freeloader")
	if err != nil {
		t.Fatalf("find sibling song: %v", err)
	}
	if sibling == nil {
		t.Fatal("session sibling track was not imported")
	}

	refs, err := lib.RefsForEntity(ctx, library.EntityRecording, recording.ID)
	if err != nil {
		t.Fatalf("refs for recording: %v", err)
	}
	wantRefs := map[string]string{
		catalog.NameArchive:    "arc-200-1",
		catalog.NameStreambox:  "sb-9-1",
		catalog.NameWavelength: "wl-3-1",
	}
	if len(refs) != len(wantRefs) {
		t.Fatalf("recording refs = %d, want %d", len(refs), len(wantRefs))
	}
	for _, ref := range refs {
		if wantRefs[ref.Catalog] != ref.ExternalID {
			t.Fatalf("ref %s = %q, want %q", ref.Catalog, ref.ExternalID, wantRefs[ref.Catalog])
		}
	}

	releases, err := lib.ReleasesForRecording(ctx, recording.ID)
	if err != nil {
		t.Fatalf("releases for recording: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("len(releases) = %d, want 1", len(releases))
	}
	release, err := lib.GetRelease(ctx, releases[0].ID)
	if err != nil {
		t.Fatalf("get release: %v", err)
	}
	if release.Title != "Kind of Blue" || release.Year != 1959 {
		t.Fatalf("release = %+v", release)
	}
	if release.CoverURL != "https://covers.example/kob-front.jpg" {
		t.Fatalf("cover url = %q", release.CoverURL)
	}

	leader, err := lib.FindPerformerByName(ctx, "Miles Davis")
	if err != nil {
		t.Fatalf("find performer: %v", err)
	}
	if leader == nil {
		t.Fatal("leader not created")
	}
	performer, err := lib.GetPerformer(ctx, leader.ID)
	if err != nil {
		t.Fatalf("get performer: %v", err)
	}
	if performer.Biography == "" {
		t.Fatal("biography not crawled")
	}
	if performer.ImageURL != "https://enc.example/miles.jpg" {
		t.Fatalf("image url = %q", performer.ImageURL)
	}
}

func TestOrchestratorRecordsFailedPhaseAndContinues(t *testing.T) {
	emptyStreambox := http.NewServeMux()
	emptyStreambox.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"albums": map[string]any{"items": []any{}}})
	})
	cfg := fixtureConfig(t, map[string]http.Handler{catalog.NameStreambox: emptyStreambox})

	lib, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	defer lib.Close()
	ctx := context.Background()

	song, err := lib.CreateSong(ctx, "So What", "Miles Davis", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}

	runner, err := NewRunner(cfg, lib, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	orchestrator := NewOrchestrator(cfg, lib, runner, nil)

	job, err := orchestrator.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := orchestrator.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer orchestrator.Stop()

	done := waitForJob(t, orchestrator.Jobs(), job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("job status = %q, want completed despite a failed phase", done.Status)
	}
	if len(done.FailedPhases) != 1 || done.FailedPhases[0] != PhaseStreamboxMatch {
		t.Fatalf("failed phases = %v, want [%s]", done.FailedPhases, PhaseStreamboxMatch)
	}

	// The later catalogs still ran.
	recordings, err := lib.RecordingsForSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("recordings for song: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("len(recordings) = %d, want 1", len(recordings))
	}
	refs, err := lib.RefsForEntity(ctx, library.EntityRecording, recordings[0].ID)
	if err != nil {
		t.Fatalf("refs for recording: %v", err)
	}
	catalogs := map[string]bool{}
	for _, ref := range refs {
		catalogs[ref.Catalog] = true
	}
	if catalogs[catalog.NameStreambox] {
		t.Fatal("streambox ref should be absent")
	}
	if !catalogs[catalog.NameWavelength] {
		t.Fatal("wavelength ref missing")
	}
}
