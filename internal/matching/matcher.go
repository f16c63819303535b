package matching

import (
	"fmt"
	"strings"

	"bandstand/internal/services"
	"bandstand/internal/textutil"
)

// Tier is the categorical strength of a match decision.
type Tier int

const (
	TierNone Tier = iota
	TierLow
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "none"
	}
}

// Outcome classifies the result of a selection pass.
type Outcome int

const (
	// OutcomeMatched means a candidate was selected.
	OutcomeMatched Outcome = iota
	// OutcomeNoCandidates means the catalog returned nothing usable.
	OutcomeNoCandidates
	// OutcomeBelowThreshold means candidates existed but none scored high
	// enough, even after the qualifier-stripping fallback.
	OutcomeBelowThreshold
	// OutcomePartialContainerMatch means a container (album) matched but the
	// item (track) inside it did not. Downstream code must not treat this as
	// a full match.
	OutcomePartialContainerMatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomePartialContainerMatch:
		return "partial_container_match"
	default:
		return "unknown"
	}
}

// Candidate is the common shape every catalog client normalizes its search
// results into before they reach the matcher.
type Candidate struct {
	ExternalID string
	Title      string
	Artist     string
	Year       int
}

// Result carries the selected candidate (if any) plus enough detail for
// callers to log and for review surfaces to explain the decision.
type Result struct {
	Outcome   Outcome
	Candidate *Candidate
	Tier      Tier
	Score     float64
	BestScore float64
	Rationale string
	Skipped   int
}

// Err maps the outcome onto the shared error taxonomy. Matched yields nil.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeMatched:
		return nil
	case OutcomeNoCandidates:
		return services.ErrNoCandidates
	case OutcomeBelowThreshold:
		return services.ErrBelowThreshold
	case OutcomePartialContainerMatch:
		return services.ErrPartialContainerMatch
	default:
		return services.ErrValidation
	}
}

// Select runs the full pipeline against a candidate list: exact pass, scored
// pass, then qualifier-stripping fallback. The exact pass always wins when
// present because fuzzy ranking can place a similar-looking title above the
// true exact match. Malformed candidates (empty title) are skipped and
// counted, never fatal.
func Select(query string, candidates []Candidate, threshold float64) Result {
	usable := make([]Candidate, 0, len(candidates))
	skipped := 0
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Title) == "" {
			skipped++
			continue
		}
		usable = append(usable, candidate)
	}
	if len(usable) == 0 {
		return Result{Outcome: OutcomeNoCandidates, Skipped: skipped}
	}

	queryExact := ExactKey(query)
	for idx := range usable {
		if ExactKey(usable[idx].Title) == queryExact {
			return Result{
				Outcome:   OutcomeMatched,
				Candidate: &usable[idx],
				Tier:      TierHigh,
				Score:     1.0,
				BestScore: 1.0,
				Rationale: "exact title match",
				Skipped:   skipped,
			}
		}
	}

	queryFP := textutil.NewFingerprint(apostropheReplacer.Replace(query))
	bestScore := -1.0
	bestIdx := -1
	for idx := range usable {
		score := textutil.CosineSimilarity(queryFP, textutil.NewFingerprint(apostropheReplacer.Replace(usable[idx].Title)))
		if score > bestScore {
			bestScore = score
			bestIdx = idx
		}
	}
	if bestScore >= threshold {
		return Result{
			Outcome:   OutcomeMatched,
			Candidate: &usable[bestIdx],
			Tier:      TierMedium,
			Score:     bestScore,
			BestScore: bestScore,
			Rationale: fmt.Sprintf("similarity %.2f above threshold %.2f", bestScore, threshold),
			Skipped:   skipped,
		}
	}

	strippedQuery := StripQualifiers(query)
	strippedFP := textutil.NewFingerprint(apostropheReplacer.Replace(strippedQuery))
	fallbackScore := -1.0
	fallbackIdx := -1
	for idx := range usable {
		stripped := StripQualifiers(usable[idx].Title)
		score := textutil.CosineSimilarity(strippedFP, textutil.NewFingerprint(apostropheReplacer.Replace(stripped)))
		if score > fallbackScore {
			fallbackScore = score
			fallbackIdx = idx
		}
	}
	if fallbackScore >= threshold {
		return Result{
			Outcome:   OutcomeMatched,
			Candidate: &usable[fallbackIdx],
			Tier:      TierLow,
			Score:     fallbackScore,
			BestScore: bestScore,
			Rationale: fmt.Sprintf("similarity %.2f after stripping qualifiers", fallbackScore),
			Skipped:   skipped,
		}
	}

	return Result{
		Outcome:   OutcomeBelowThreshold,
		BestScore: bestScore,
		Rationale: fmt.Sprintf("best similarity %.2f below threshold %.2f", bestScore, threshold),
		Skipped:   skipped,
	}
}
