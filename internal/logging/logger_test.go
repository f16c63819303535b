package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bandstand/internal/services"
)

func TestNewJSONWritesStructuredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("catalog search", String(FieldCatalog, "archive"), Int("hits", 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	if record["msg"] != "catalog search" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record[FieldCatalog] != "archive" {
		t.Fatalf("%s = %v", FieldCatalog, record[FieldCatalog])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("parseLevel = %v, want info", got)
	}
	if got := parseLevel("WARN"); got != slog.LevelWarn {
		t.Fatalf("parseLevel = %v, want warn", got)
	}
}

func TestContextFieldsCarriesJobPhaseAndRequest(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithPhase(ctx, "archive_import")
	ctx = services.WithRequestID(ctx, "req-1")

	fields := ContextFields(ctx)
	got := map[string]string{}
	for _, attr := range fields {
		got[attr.Key] = attr.Value.String()
	}
	if got[FieldJobID] != "42" || got[FieldPhase] != "archive_import" || got[FieldCorrelationID] != "req-1" {
		t.Fatalf("context fields = %v", got)
	}
}

func TestNewComponentLoggerNilSafe(t *testing.T) {
	logger := NewComponentLogger(nil, "matcher")
	if logger == nil {
		t.Fatal("component logger should never be nil")
	}
	logger.Info("no-op")
}
