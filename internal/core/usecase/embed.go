package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

// embedChunks embeds every chunk in one call and pairs chunks with vectors.
func embedChunks(ctx context.Context, embedder ports.Embedder, chunks []domain.DocumentChunk) ([]domain.ChunkEmbedding, error) {
	if err := checkCancelled(ctx, "embed chunks"); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, collaboratorError("embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrCollaborator,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	out := make([]domain.ChunkEmbedding, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 || len(vectors[i]) != len(vectors[0]) {
			return nil, domain.WrapError(
				domain.ErrCollaborator,
				"embed chunks",
				fmt.Errorf("chunk %s has %d dimensions, expected %d", c.ID, len(vectors[i]), len(vectors[0])),
			)
		}
		out[i] = domain.ChunkEmbedding{Chunk: c, Vector: vectors[i]}
	}
	return out, nil
}

func checkCancelled(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrCancelled, operation, err)
	}
	return nil
}

// collaboratorError tags a collaborator failure, keeping kinds it already carries.
func collaboratorError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrCollaborator) || domain.IsKind(err, domain.ErrCancelled) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrCancelled, operation, err)
	}
	return domain.WrapError(domain.ErrCollaborator, operation, err)
}
