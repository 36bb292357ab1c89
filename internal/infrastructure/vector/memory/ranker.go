// Package memory ranks chunk embeddings with exhaustive cosine similarity.
// It is sized for a single manuscript: tens to low hundreds of chunks.
package memory

import (
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// CosineSimilarity returns dot(a,b)/(|a||b|). A zero-magnitude vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "cosine similarity", fmt.Errorf("dimension mismatch: %d/%d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank scores every candidate against query and returns the topK best,
// similarity descending. Equal scores keep candidate order.
func (Ranker) Rank(query []float32, candidates []domain.ChunkEmbedding, topK int) ([]domain.SimilarityResult, error) {
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rank", fmt.Errorf("top k must be positive, got %d", topK))
	}

	scored := make([]domain.SimilarityResult, 0, len(candidates))
	for i, c := range candidates {
		sim, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("candidate %d (%s): %w", i, c.Chunk.ID, err)
		}
		scored = append(scored, domain.SimilarityResult{Chunk: c.Chunk, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}
