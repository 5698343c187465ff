// Package vector holds the pure vector arithmetic used for ranking.
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// CosineSimilarity returns dot(a,b) / (|a|*|b|), clamped to [-1, 1].
// Vectors must have equal length. A zero-magnitude vector yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDimensionMismatch(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push |v|·|v| slightly past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

// Validate rejects empty vectors and vectors with NaN or Inf components.
func Validate(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	for i, f := range v {
		x := float64(f)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("non-finite component at index %d", i)
		}
	}
	return nil
}

// CheckDimension returns a dimension mismatch error unless len(v) == dim.
// dim <= 0 disables the check.
func CheckDimension(v []float32, dim int) error {
	if dim > 0 && len(v) != dim {
		return domain.NewDimensionMismatch(dim, len(v))
	}
	return nil
}
