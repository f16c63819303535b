package textutil

import "testing"

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("so what"), 0},
		{"b nil", NewFingerprint("so what"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "Stella by Starlight"
	got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text))
	if got != 1.0 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityCompletelyDifferent(t *testing.T) {
	got := Similarity("Giant Steps", "Moanin")
	if got != 0 {
		t.Errorf("Similarity(different) = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	got := Similarity("Autumn Leaves", "Autumn Nocturne")
	if got <= 0 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestTokenizeKeepsShortTitleWords(t *testing.T) {
	tokens := Tokenize("So What")
	if len(tokens) != 2 {
		t.Fatalf("Tokenize(So What) = %v, want 2 tokens", tokens)
	}
}

func TestTokenCount(t *testing.T) {
	if got := NewFingerprint("blue in green blue").TokenCount(); got != 3 {
		t.Fatalf("TokenCount = %d, want 3", got)
	}
	var nilFP *Fingerprint
	if got := nilFP.TokenCount(); got != 0 {
		t.Fatalf("nil TokenCount = %d, want 0", got)
	}
}
