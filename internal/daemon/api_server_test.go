package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"bandstand/internal/api"
	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/testsupport"
)

func startTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*Daemon, *library.Store, string) {
	t.Helper()
	cfg := localConfig(t)
	for _, opt := range opts {
		opt(cfg)
	}
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	d, err := New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store, "http://" + d.APIAddr()
}

func postJSON(t *testing.T, url string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestAPIHealthAndStatus(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	statusResp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer statusResp.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || !status.Research.Active {
		t.Fatalf("status = %+v, want running with active research", status)
	}
}

func TestAPIResearchEnqueueAndList(t *testing.T) {
	_, store, base := startTestDaemon(t)
	ctx := context.Background()

	song, err := store.CreateSong(ctx, "Lush Life", "Billy Strayhorn", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}

	resp := postJSON(t, base+"/api/research", api.EnqueueRequest{EntityType: library.EntitySong, EntityID: song.ID}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enqueue status = %d", resp.StatusCode)
	}
	var accepted api.EnqueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode enqueue response: %v", err)
	}
	job := accepted.Job
	if job.EntityID != song.ID {
		t.Fatalf("job entity = %d, want %d", job.EntityID, song.ID)
	}
	if job.EntityName != "Lush Life" {
		t.Fatalf("job entity name = %q, want song title", job.EntityName)
	}
	if accepted.QueueSize < 0 {
		t.Fatalf("queue size = %d", accepted.QueueSize)
	}

	listResp, err := http.Get(base + "/api/research/jobs")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	defer listResp.Body.Close()
	var list api.JobListResponse
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) == 0 || list.Jobs[0].ID != job.ID {
		t.Fatalf("jobs = %+v, want job %d first", list.Jobs, job.ID)
	}
}

func TestAPIResearchRejectsNonSong(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp := postJSON(t, base+"/api/research", api.EnqueueRequest{EntityType: library.EntityRelease, EntityID: 1}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPICurateRoundTrip(t *testing.T) {
	_, store, base := startTestDaemon(t)
	ctx := context.Background()

	song, err := store.CreateSong(ctx, "Take Five", "Paul Desmond", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}

	resp := postJSON(t, base+"/api/fields/curated", api.CurateRequest{
		EntityType: library.EntitySong,
		EntityID:   song.ID,
		Field:      "title",
		Value:      "Take Five (Desmond)",
		CuratedBy:  "editor",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("curate status = %d", resp.StatusCode)
	}

	got, err := store.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("get song: %v", err)
	}
	if got.Title != "Take Five (Desmond)" {
		t.Fatalf("title = %q, want curated value", got.Title)
	}

	clearResp := postJSON(t, base+"/api/fields/curated/clear", api.CurateRequest{
		EntityType: library.EntitySong,
		EntityID:   song.ID,
		Field:      "title",
	}, nil)
	defer clearResp.Body.Close()
	if clearResp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d", clearResp.StatusCode)
	}

	got, err = store.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("get song after clear: %v", err)
	}
	if got.Title != "Take Five" {
		t.Fatalf("title = %q, want crawled value restored", got.Title)
	}
}

func TestAPIDuplicatesRequiresSongID(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/duplicates")
	if err != nil {
		t.Fatalf("get duplicates: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPIResearchStatusSnapshot(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/research/status")
	if err != nil {
		t.Fatalf("get research status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var status api.ResearchStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode research status: %v", err)
	}
	if !status.Active {
		t.Fatalf("research status = %+v, want active", status)
	}
}

func TestAPIRefVerifyResolvesByEntity(t *testing.T) {
	_, store, base := startTestDaemon(t)
	ctx := context.Background()

	song, err := store.CreateSong(ctx, "Moanin'", "Bobby Timmons", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	ref, err := store.UpsertRef(ctx, library.EntitySong, song.ID, "archive", "ses-1", "https://archive.test/ses-1")
	if err != nil {
		t.Fatalf("upsert ref: %v", err)
	}

	resp := postJSON(t, base+"/api/refs/verify", api.RefRequest{
		EntityType: library.EntitySong,
		EntityID:   song.ID,
		Catalog:    "archive",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", resp.StatusCode)
	}
	var verdict api.RefVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if verdict.RefID != ref.ID {
		t.Fatalf("verdict ref = %d, want %d", verdict.RefID, ref.ID)
	}

	missing := postJSON(t, base+"/api/refs/verify", api.RefRequest{}, nil)
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty request status = %d, want 400", missing.StatusCode)
	}
}

func TestAPIRefVerifyRejectsAmbiguousGroup(t *testing.T) {
	_, store, base := startTestDaemon(t)
	ctx := context.Background()

	song, err := store.CreateSong(ctx, "Body and Soul", "Johnny Green", "test")
	if err != nil {
		t.Fatalf("create song: %v", err)
	}
	if _, err := store.UpsertRef(ctx, library.EntitySong, song.ID, "archive", "ses-1", ""); err != nil {
		t.Fatalf("upsert first ref: %v", err)
	}
	if _, err := store.UpsertRef(ctx, library.EntitySong, song.ID, "archive", "ses-2", ""); err != nil {
		t.Fatalf("upsert conflicting ref: %v", err)
	}

	resp := postJSON(t, base+"/api/refs/verify", api.RefRequest{
		EntityType: library.EntitySong,
		EntityID:   song.ID,
		Catalog:    "archive",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for ambiguous group", resp.StatusCode)
	}
}

func TestAPIAuthToken(t *testing.T) {
	const token = "secret-token"
	_, _, base := startTestDaemon(t, func(cfg *config.Config) { cfg.Paths.APIToken = token })

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed status: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authed status = %d, want 200", authed.StatusCode)
	}

	// Health stays open for liveness probes.
	health, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", health.StatusCode)
	}
}
