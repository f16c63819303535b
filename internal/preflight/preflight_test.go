package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"bandstand/internal/config"
	"bandstand/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_OK(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp volume, got: %s", result.Detail)
	}
}

func TestCheckCatalog_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := CheckCatalog(context.Background(), "test", config.Catalog{BaseURL: srv.URL, APIKey: "k"}, true)
	if !result.Passed {
		t.Fatalf("any HTTP answer should pass, got: %s", result.Detail)
	}
}

func TestCheckCatalog_MissingKey(t *testing.T) {
	result := CheckCatalog(context.Background(), "test", config.Catalog{BaseURL: "http://127.0.0.1:1"}, true)
	if result.Passed {
		t.Fatal("expected failure for missing api key")
	}
}

func TestCheckCatalog_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	result := CheckCatalog(context.Background(), "test", config.Catalog{BaseURL: srv.URL}, false)
	if result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestRunAllSkipsUnconfiguredCatalogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithCatalogURL("archive", srv.URL),
		testsupport.WithCatalogURL("streambox", srv.URL),
		testsupport.WithCatalogURL("wavelength", srv.URL),
		testsupport.WithCatalogURL("encyclopedia", srv.URL),
		testsupport.WithCatalogURL("cover_art", srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if !AllPassed(results) {
		for _, result := range results {
			if !result.Passed {
				t.Errorf("%s failed: %s", result.Name, result.Detail)
			}
		}
		t.Fatal("expected all checks to pass")
	}

	cfg.CoverArt.BaseURL = ""
	trimmed := RunAll(context.Background(), cfg)
	if len(trimmed) != len(results)-1 {
		t.Fatalf("len(results) = %d, want %d", len(trimmed), len(results)-1)
	}
}
