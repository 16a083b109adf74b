package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

// fakeEncoder maps each known text to a fixed vector.
type fakeEncoder struct {
	vectors map[string][]float64
	err     error
}

func (f fakeEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, errors.New("unknown text")
		}
		out[i] = v
	}
	return out, nil
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Fatalf("expected 1 for identical vectors, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("expected 0 for zero vector, got %v", got)
	}
}

func TestMatcher_ScoresMaxCosinePerCategory(t *testing.T) {
	enc := fakeEncoder{vectors: map[string][]float64{
		"fraud":        {1, 0},
		"unauthorized": {0.6, 0.8},
		"refund":       {0, 1},
		"query":        {1, 0},
	}}
	m := NewMatcher(context.Background(), enc, map[string][]string{
		"FRAUD":          {"fraud", "unauthorized"},
		"REFUND_PENDING": {"refund"},
	}, zerolog.Nop())

	if !m.Enabled() {
		t.Fatalf("expected matcher enabled")
	}

	scores := m.Scores(context.Background(), "query")
	if math.Abs(scores["FRAUD"]-1.0) > 1e-9 {
		t.Fatalf("expected max cosine 1.0 for FRAUD, got %v", scores["FRAUD"])
	}
	if math.Abs(scores["REFUND_PENDING"]) > 1e-9 {
		t.Fatalf("expected 0 for orthogonal REFUND_PENDING, got %v", scores["REFUND_PENDING"])
	}
}

func TestMatcher_ConstructionFailureDegradesToDisabled(t *testing.T) {
	enc := fakeEncoder{err: errors.New("backend down")}
	m := NewMatcher(context.Background(), enc, map[string][]string{"FRAUD": {"fraud"}}, zerolog.Nop())
	if m.Enabled() {
		t.Fatalf("expected matcher disabled after encode failure")
	}
	scores := m.Scores(context.Background(), "anything")
	for cat, s := range scores {
		if s != 0 {
			t.Fatalf("expected zero score for %s, got %v", cat, s)
		}
	}
}

func TestMatcher_PerCallFailureDegradesToZero(t *testing.T) {
	enc := fakeEncoder{vectors: map[string][]float64{"fraud": {1, 0}}}
	m := NewMatcher(context.Background(), enc, map[string][]string{"FRAUD": {"fraud"}}, zerolog.Nop())
	if !m.Enabled() {
		t.Fatalf("expected matcher enabled")
	}

	// "novel text" is unknown to the encoder so the call fails.
	scores := m.Scores(context.Background(), "novel text")
	if scores["FRAUD"] != 0 {
		t.Fatalf("expected degraded zero score, got %v", scores["FRAUD"])
	}
}

func TestDisabledMatcher(t *testing.T) {
	m := Disabled()
	if m.Enabled() {
		t.Fatalf("expected disabled")
	}
	scores := m.Scores(context.Background(), "anything")
	if len(scores) != 0 {
		t.Fatalf("expected empty score map, got %v", scores)
	}
}
