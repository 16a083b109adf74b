package embed

import (
	"context"
	"math"
)

// Encoder turns texts into fixed-size vectors. The only network-bound piece
// of the classification core; everything downstream tolerates its absence.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// Cosine returns the cosine similarity of two vectors, 0 when either has no
// magnitude or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
