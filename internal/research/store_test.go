package research

import (
	"context"
	"errors"
	"testing"

	"bandstand/internal/library"
	"bandstand/internal/services"
	"bandstand/internal/testsupport"
)

func newTestStore(t *testing.T) (*Store, *library.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	lib, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return NewStore(lib), lib
}

func mustSong(t *testing.T, lib *library.Store, title string) *library.Song {
	t.Helper()
	song, err := lib.CreateSong(context.Background(), title, "", "test")
	if err != nil {
		t.Fatalf("create song %q: %v", title, err)
	}
	return song
}

func TestEnqueueCapturesEntityName(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()

	song := mustSong(t, lib, "Giant Steps")
	job, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.EntityName != "Giant Steps" {
		t.Fatalf("entity name = %q, want song title", job.EntityName)
	}

	reloaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if reloaded.EntityName != "Giant Steps" {
		t.Fatalf("persisted entity name = %q", reloaded.EntityName)
	}

	if _, err := store.Enqueue(ctx, library.EntitySong, song.ID+100); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found for unknown song, got %v", err)
	}
}

func TestEnqueueOrderIsCompletionOrder(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()

	first := mustSong(t, lib, "So What")
	second := mustSong(t, lib, "Naima")
	third := mustSong(t, lib, "Moanin'")

	var ids []int64
	for _, song := range []*library.Song{first, second, third} {
		job, err := store.Enqueue(ctx, library.EntitySong, song.ID)
		if err != nil {
			t.Fatalf("enqueue song %d: %v", song.ID, err)
		}
		ids = append(ids, job.ID)
	}

	size, err := store.QueueSize(ctx)
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if size != 3 {
		t.Fatalf("queue size = %d, want 3", size)
	}

	for _, want := range ids {
		job, err := store.NextQueued(ctx)
		if err != nil {
			t.Fatalf("next queued: %v", err)
		}
		if job == nil || job.ID != want {
			t.Fatalf("next queued = %+v, want job %d", job, want)
		}
		if err := store.MarkCompleted(ctx, job.ID, nil); err != nil {
			t.Fatalf("mark completed: %v", err)
		}
	}

	job, err := store.NextQueued(ctx)
	if err != nil {
		t.Fatalf("next queued on empty queue: %v", err)
	}
	if job != nil {
		t.Fatalf("expected empty queue, got job %d", job.ID)
	}
}

func TestEnqueueDeduplicatesPendingEntity(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()
	song := mustSong(t, lib, "Blue in Green")

	first, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	repeat, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("repeat enqueue: %v", err)
	}
	if repeat.ID != first.ID {
		t.Fatalf("repeat enqueue created job %d, want existing job %d", repeat.ID, first.ID)
	}

	// The claim does not release the dedupe; completion does.
	if err := store.MarkResearching(ctx, first.ID); err != nil {
		t.Fatalf("mark researching: %v", err)
	}
	inFlight, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue while researching: %v", err)
	}
	if inFlight.ID != first.ID {
		t.Fatalf("enqueue while researching created job %d, want %d", inFlight.ID, first.ID)
	}

	if err := store.MarkCompleted(ctx, first.ID, nil); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	fresh, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue after completion: %v", err)
	}
	if fresh.ID == first.ID {
		t.Fatal("completed entity should enqueue a new job")
	}
}

func TestEnqueueRejectsNonSongEntities(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Enqueue(context.Background(), library.EntityPerformer, 1)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("enqueue performer err = %v, want ErrValidation", err)
	}
}

func TestResetInFlightRequeuesFromFirstPhase(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()
	song := mustSong(t, lib, "Footprints")

	job, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.MarkResearching(ctx, job.ID); err != nil {
		t.Fatalf("mark researching: %v", err)
	}
	if err := store.UpdateProgress(ctx, job.ID, PhaseStreamboxMatch, 1, 2); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	reset, err := store.ResetInFlight(ctx)
	if err != nil {
		t.Fatalf("reset in-flight: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset %d jobs, want 1", reset)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusQueued {
		t.Fatalf("status = %q, want %q", got.Status, StatusQueued)
	}
	if got.Phase != "" || got.PhaseCurrent != 0 || got.PhaseTotal != 0 {
		t.Fatalf("phase pointer not cleared: %+v", got)
	}
	if got.StartedAt != nil {
		t.Fatal("started_at should be cleared on requeue")
	}
}

func TestMarkCompletedRecordsFailedPhases(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()
	song := mustSong(t, lib, "Giant Steps")

	job, err := store.Enqueue(ctx, library.EntitySong, song.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	failed := []string{PhaseStreamboxMatch, PhaseMediaFetch}
	if err := store.MarkCompleted(ctx, job.ID, failed); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, StatusCompleted)
	}
	if len(got.FailedPhases) != 2 || got.FailedPhases[0] != PhaseStreamboxMatch || got.FailedPhases[1] != PhaseMediaFetch {
		t.Fatalf("failed phases = %v, want %v", got.FailedPhases, failed)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	store, lib := newTestStore(t)
	ctx := context.Background()

	var last int64
	for _, title := range []string{"Oleo", "Doxy", "Airegin"} {
		song := mustSong(t, lib, title)
		job, err := store.Enqueue(ctx, library.EntitySong, song.ID)
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		last = job.ID
	}

	jobs, err := store.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}
	if jobs[0].ID != last {
		t.Fatalf("first listed job = %d, want newest %d", jobs[0].ID, last)
	}
}
