package classifier

import "testing"

func TestTokenSetRatio_Identical(t *testing.T) {
	if got := TokenSetRatio("payment failed", "payment failed"); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestTokenSetRatio_Containment(t *testing.T) {
	// A description containing every token of the phrase scores 100
	// regardless of the extra words around it.
	got := TokenSetRatio("i was charged twice for the same order yesterday", "charged twice")
	if got != 100 {
		t.Fatalf("expected 100 for full containment, got %d", got)
	}
}

func TestTokenSetRatio_WordOrderIrrelevant(t *testing.T) {
	a := TokenSetRatio("twice charged", "charged twice")
	if a != 100 {
		t.Fatalf("expected 100 for reordered tokens, got %d", a)
	}
}

func TestTokenSetRatio_Disjoint(t *testing.T) {
	got := TokenSetRatio("the weather is nice today", "unauthorized")
	if got > 40 {
		t.Fatalf("expected low score for unrelated text, got %d", got)
	}
}

func TestTokenSetRatio_Empty(t *testing.T) {
	if got := TokenSetRatio("", "refund"); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
	if got := TokenSetRatio("refund", ""); got != 0 {
		t.Fatalf("expected 0 for empty phrase, got %d", got)
	}
}

func TestTokenSetRatio_CaseAndPunctuation(t *testing.T) {
	got := TokenSetRatio("REFUND not received!!", "refund not received")
	if got != 100 {
		t.Fatalf("expected 100 ignoring case and punctuation, got %d", got)
	}
}

func TestBestMatch_PicksHighestPhrase(t *testing.T) {
	idx := NewPhraseIndex(map[string][]string{
		"FRAUD": {"hacked", "someone else used my card"},
	})
	phrase, score := idx.BestMatch("someone else used my card at a store", "FRAUD")
	if phrase != "someone else used my card" {
		t.Fatalf("expected best phrase, got %q", phrase)
	}
	if score != 100 {
		t.Fatalf("expected 100, got %d", score)
	}
}

func TestBestMatch_TieGoesToFirstConfigured(t *testing.T) {
	idx := NewPhraseIndex(map[string][]string{
		"FRAUD": {"fraud", "unauthorized"},
	})
	// Both phrases are fully contained, so both score 100.
	phrase, _ := idx.BestMatch("fraud unauthorized", "FRAUD")
	if phrase != "fraud" {
		t.Fatalf("expected first configured phrase on tie, got %q", phrase)
	}
}

func TestBestMatch_UnknownCategory(t *testing.T) {
	idx := NewPhraseIndex(map[string][]string{"FRAUD": {"fraud"}})
	phrase, score := idx.BestMatch("anything", "NOPE")
	if phrase != "" || score != 0 {
		t.Fatalf("expected empty result for unknown category, got %q %d", phrase, score)
	}
}
