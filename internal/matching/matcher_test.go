package matching_test

import (
	"errors"
	"testing"

	"bandstand/internal/matching"
	"bandstand/internal/services"
)

const testThreshold = 0.62

func TestSelectExactMatchBeatsFuzzyAlternative(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "arc-2", Title: "Autumn Leaves (Live)"},
		{ExternalID: "arc-1", Title: "Autumn Leaves"},
	}
	result := matching.Select("Autumn Leaves", candidates, testThreshold)
	if result.Outcome != matching.OutcomeMatched {
		t.Fatalf("expected match, got %v (%s)", result.Outcome, result.Rationale)
	}
	if result.Candidate.ExternalID != "arc-1" {
		t.Fatalf("expected exact candidate arc-1, got %s", result.Candidate.ExternalID)
	}
	if result.Tier != matching.TierHigh {
		t.Fatalf("expected high tier for exact match, got %s", result.Tier)
	}
}

func TestSelectApostropheVariantsAreNotExact(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "sb-9", Title: "Don Cha Go Way Mad"},
	}
	result := matching.Select("Don'cha Go 'Way Mad", candidates, testThreshold)
	if result.Outcome != matching.OutcomeMatched {
		t.Fatalf("expected match after normalization, got %v (%s)", result.Outcome, result.Rationale)
	}
	if result.Tier == matching.TierHigh {
		t.Fatalf("punctuation variant must not rank as exact, got tier %s", result.Tier)
	}
}

func TestSelectQualifierFallback(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "wl-4", Title: "So What (Live At The Blackhawk San Francisco April 1961 Remastered)"},
	}
	result := matching.Select("So What", candidates, testThreshold)
	if result.Outcome != matching.OutcomeMatched {
		t.Fatalf("expected fallback match, got %v (%s)", result.Outcome, result.Rationale)
	}
	if result.Tier != matching.TierLow {
		t.Fatalf("expected low tier from qualifier fallback, got %s", result.Tier)
	}
}

func TestSelectNoCandidates(t *testing.T) {
	result := matching.Select("Giant Steps", nil, testThreshold)
	if result.Outcome != matching.OutcomeNoCandidates {
		t.Fatalf("expected no-candidates outcome, got %v", result.Outcome)
	}
	if !errors.Is(result.Err(), services.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", result.Err())
	}
}

func TestSelectBelowThresholdDistinctFromNoCandidates(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "arc-7", Title: "Moanin'"},
	}
	result := matching.Select("Giant Steps", candidates, testThreshold)
	if result.Outcome != matching.OutcomeBelowThreshold {
		t.Fatalf("expected below-threshold outcome, got %v", result.Outcome)
	}
	if result.BestScore >= testThreshold {
		t.Fatalf("best score should stay below threshold, got %.2f", result.BestScore)
	}
	if !errors.Is(result.Err(), services.ErrBelowThreshold) {
		t.Fatalf("expected ErrBelowThreshold, got %v", result.Err())
	}
}

func TestSelectSkipsMalformedCandidates(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "bad-1", Title: "   "},
		{ExternalID: "arc-3", Title: "Blue in Green"},
	}
	result := matching.Select("Blue in Green", candidates, testThreshold)
	if result.Outcome != matching.OutcomeMatched {
		t.Fatalf("expected match despite malformed candidate, got %v", result.Outcome)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped candidate, got %d", result.Skipped)
	}
}

func TestSelectAllMalformed(t *testing.T) {
	candidates := []matching.Candidate{
		{ExternalID: "bad-1", Title: ""},
		{ExternalID: "bad-2", Title: " "},
	}
	result := matching.Select("Blue in Green", candidates, testThreshold)
	if result.Outcome != matching.OutcomeNoCandidates {
		t.Fatalf("expected no-candidates when everything is malformed, got %v", result.Outcome)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", result.Skipped)
	}
}

func TestMatchTrackReportsPartialContainer(t *testing.T) {
	tracks := []matching.Candidate{
		{ExternalID: "t-1", Title: "Freddie Freeloader"},
		{ExternalID: "t-2", Title: "All Blues"},
	}
	result := matching.MatchTrack("Lonely Woman", tracks, testThreshold)
	if result.Outcome != matching.OutcomePartialContainerMatch {
		t.Fatalf("expected partial container outcome, got %v", result.Outcome)
	}
	if !errors.Is(result.Err(), services.ErrPartialContainerMatch) {
		t.Fatalf("expected ErrPartialContainerMatch, got %v", result.Err())
	}
}

func TestMatchTrackSucceeds(t *testing.T) {
	tracks := []matching.Candidate{
		{ExternalID: "t-1", Title: "Freddie Freeloader"},
		{ExternalID: "t-2", Title: "All Blues"},
	}
	result := matching.MatchTrack("All Blues", tracks, testThreshold)
	if result.Outcome != matching.OutcomeMatched {
		t.Fatalf("expected match, got %v (%s)", result.Outcome, result.Rationale)
	}
	if result.Candidate.ExternalID != "t-2" {
		t.Fatalf("expected track t-2, got %s", result.Candidate.ExternalID)
	}
}

func TestExactKeyUnifiesTypography(t *testing.T) {
	if matching.ExactKey("’Round  Midnight") != matching.ExactKey("'Round Midnight") {
		t.Fatal("typographic apostrophe should fold to ASCII")
	}
	if matching.ExactKey("Don'cha") == matching.ExactKey("Don Cha") {
		t.Fatal("exact key must keep punctuation distinct")
	}
}

func TestFoldKeyStripsPunctuation(t *testing.T) {
	if matching.FoldKey("Don'cha Go 'Way Mad") != matching.FoldKey("Don Cha Go Way Mad") {
		t.Fatal("fold key should erase punctuation differences")
	}
	if matching.FoldKey("Bird & Diz") != matching.FoldKey("Bird and Diz") {
		t.Fatal("fold key should translate ampersand")
	}
}

func TestStripQualifiers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Autumn Leaves (Live)", "Autumn Leaves"},
		{"Misterioso [Alternate Take]", "Misterioso"},
		{"Straight, No Chaser", "Straight, No Chaser"},
		{"So What (Live) (Remastered)", "So What"},
	}
	for _, tc := range cases {
		if got := matching.StripQualifiers(tc.in); got != tc.want {
			t.Fatalf("StripQualifiers(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
