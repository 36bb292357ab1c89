package openai

import (
	"context"
	"fmt"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed sends texts in batches and returns one vector per input, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.client.batchSize {
		end := min(start+e.client.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": batch,
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage usagePayload `json:"usage"`
	}
	if err := e.client.postJSON(ctx, "/embeddings", request, &response, "embeddings"); err != nil {
		return nil, err
	}
	if len(response.Data) != len(batch) {
		return nil, domain.WrapError(domain.ErrCollaborator, "openai embeddings", fmt.Errorf("got %d embeddings for %d inputs", len(response.Data), len(batch)))
	}

	vectors := make([][]float32, len(batch))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(batch) || vectors[item.Index] != nil {
			return nil, domain.WrapError(domain.ErrCollaborator, "openai embeddings", fmt.Errorf("unexpected embedding index %d", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}
	e.client.record(e.client.embedModel, response.Usage)
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrCollaborator, "openai embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}
