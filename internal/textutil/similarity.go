package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	score := dot / (a.norm * b.norm)
	// Rounding can push identical fingerprints past 1, which would let a
	// fuzzy score outrank an exact match.
	if score > 1 {
		score = 1
	}
	return score
}

// Similarity is a convenience wrapper that fingerprints both strings and
// returns their cosine similarity.
func Similarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
