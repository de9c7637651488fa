// Package retrieval ranks indexed chunks against query embeddings with
// year-diversity selection on top of plain cosine similarity.
package retrieval

import (
	"fmt"
	"math"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched dimensionality is a hard error: it means the query and the
// corpus were embedded by different models and any score would be noise.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cannot compare zero-length embeddings")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
