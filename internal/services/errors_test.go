package services_test

import (
	"errors"
	"strings"
	"testing"

	"bandstand/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalUnavailable, "archive", "search", "release lookup", base)
	if !errors.Is(err, services.ErrExternalUnavailable) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	if !strings.Contains(err.Error(), "archive: search: release lookup") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalUnavailable) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %v", err)
	}
}

func TestIsExpectedOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrNoCandidates, "streambox", "search", "", nil), true},
		{services.Wrap(services.ErrBelowThreshold, "archive", "match", "", nil), true},
		{services.ErrPartialContainerMatch, true},
		{services.ErrAmbiguousReference, false},
		{services.ErrExternalUnavailable, false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsExpectedOutcome(tc.err); got != tc.want {
			t.Fatalf("IsExpectedOutcome(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
