package matching

// MatchTrack selects a track within an already matched album. A miss here is
// not the same thing as the catalog returning nothing: the container matched
// and the item did not, and callers must surface that distinctly rather than
// report a full match.
func MatchTrack(trackTitle string, tracks []Candidate, threshold float64) Result {
	result := Select(trackTitle, tracks, threshold)
	if result.Outcome == OutcomeMatched {
		return result
	}
	rationale := "album matched but no track passed threshold"
	if result.Outcome == OutcomeNoCandidates {
		rationale = "album matched but carried no usable track list"
	}
	return Result{
		Outcome:   OutcomePartialContainerMatch,
		BestScore: result.BestScore,
		Rationale: rationale,
		Skipped:   result.Skipped,
	}
}
