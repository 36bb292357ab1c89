package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func TestCosineSimilarityProperties(t *testing.T) {
	a := []float32{0.3, -1.2, 2.5}
	b := []float32{1.1, 0.4, -0.7}

	self, err := CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-9)

	ortho, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ortho, 1e-12)

	ab, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := CosineSimilarity(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	opposite, err := CosineSimilarity([]float32{1, 2}, []float32{-1, -2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite, 1e-9)
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
	assert.False(t, math.IsNaN(sim))
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestRankReturnsTopKDescending(t *testing.T) {
	candidates := []domain.ChunkEmbedding{
		embedding("a", 1, 0),
		embedding("b", 0.7, 0.7),
		embedding("c", 0, 1),
		embedding("d", -1, 0),
	}

	results, err := NewRanker().Rank([]float32{1, 0.1}, candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(results))
	for i := 1; i < len(results); i++ {
		assert.Greater(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestRankTopKLargerThanCandidates(t *testing.T) {
	candidates := []domain.ChunkEmbedding{embedding("a", 1, 0), embedding("b", 0, 1)}

	results, err := NewRanker().Rank([]float32{1, 1}, candidates, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = NewRanker().Rank([]float32{1, 1}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRankTiesKeepCandidateOrder(t *testing.T) {
	candidates := []domain.ChunkEmbedding{
		embedding("first", 1, 0),
		embedding("zero", 0, 0),
		embedding("second", 2, 0),
		embedding("third", 3, 0),
	}

	results, err := NewRanker().Rank([]float32{1, 0}, candidates, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "zero"}, ids(results))
}

func TestRankIsIdempotent(t *testing.T) {
	candidates := []domain.ChunkEmbedding{
		embedding("a", 0.2, 0.9),
		embedding("b", 0.9, 0.2),
		embedding("c", 0.5, 0.5),
	}
	query := []float32{0.6, 0.4}

	first, err := NewRanker().Rank(query, candidates, 2)
	require.NoError(t, err)
	second, err := NewRanker().Rank(query, candidates, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRankValidatesInput(t *testing.T) {
	candidates := []domain.ChunkEmbedding{embedding("a", 1, 0, 0)}

	_, err := NewRanker().Rank([]float32{1, 0}, candidates, 1)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	_, err = NewRanker().Rank([]float32{1, 0, 0}, candidates, 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestRankPrefersSemanticallyCloserChunk(t *testing.T) {
	// dims: [meeting, departure, bob]
	candidates := []domain.ChunkEmbedding{
		{Chunk: domain.DocumentChunk{ID: "c1", Content: "Chapter 1\nAlice meets Bob."}, Vector: []float32{0.9, 0.0, 0.4}},
		{Chunk: domain.DocumentChunk{ID: "c2", Content: "Chapter 2\nBob leaves town."}, Vector: []float32{0.0, 0.9, 0.4}},
	}
	question := []float32{0.1, 0.8, 0.5} // "What happens to Bob?"

	results, err := NewRanker().Rank(question, candidates, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].Chunk.ID)
}

func embedding(id string, vector ...float32) domain.ChunkEmbedding {
	return domain.ChunkEmbedding{Chunk: domain.DocumentChunk{ID: id}, Vector: vector}
}

func ids(results []domain.SimilarityResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Chunk.ID)
	}
	return out
}
