package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/testsupport"
)

// localConfig keeps preflight from reaching outside the test process.
func localConfig(t *testing.T) *config.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	t.Cleanup(srv.Close)
	return testsupport.NewConfig(t,
		testsupport.WithCatalogURL("archive", srv.URL),
		testsupport.WithCatalogURL("streambox", srv.URL),
		testsupport.WithCatalogURL("wavelength", srv.URL),
		testsupport.WithCatalogURL("encyclopedia", srv.URL),
		testsupport.WithCatalogURL("cover_art", srv.URL))
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := localConfig(t)
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	defer store.Close()

	first, err := New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon should fail to acquire the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second daemon after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStatusSnapshot(t *testing.T) {
	cfg := localConfig(t)
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	defer store.Close()

	d, err := New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status should report running")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("database path = %q, want %q", status.DatabasePath, cfg.DatabasePath())
	}
	if status.Research == nil || !status.Research.Active {
		t.Fatal("research orchestrator should be active")
	}
	if status.Library == nil {
		t.Fatal("library stats missing")
	}
	if d.APIAddr() == "" {
		t.Fatal("api address should be bound")
	}
}
