package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/resilience"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/usage"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
	usage      ports.UsageRecorder
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) WithResilience(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

func (c *Client) WithUsageRecorder(recorder ports.UsageRecorder) *Client {
	c.usage = recorder
	return c
}

func (c *Client) record(model string, promptTokens, completionTokens int) {
	if c.usage == nil {
		return
	}
	c.usage.Record(domain.TokenUsage{
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	})
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings      [][]float32 `json:"embeddings"`
		PromptEvalCount int         `json:"prompt_eval_count"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrCollaborator, "ollama embed", fmt.Errorf("got %d embeddings for %d inputs", len(response.Embeddings), len(texts)))
	}
	promptTokens := response.PromptEvalCount
	if promptTokens == 0 {
		for _, text := range texts {
			promptTokens += usage.EstimateTokens(text)
		}
	}
	e.client.record(e.client.embedModel, promptTokens, 0)
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrCollaborator, "ollama embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": req.Prompt,
		"stream": false,
	}
	if strings.TrimSpace(req.SystemMessage) != "" {
		reqBody["system"] = req.SystemMessage
	}
	if req.ResponseFormat == domain.ResponseFormatJSONObject {
		reqBody["format"] = "json"
	}
	if len(options) > 0 {
		reqBody["options"] = options
	}

	var response struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	// Ollama omits the counts on some cached or older responses.
	promptTokens, completionTokens := response.PromptEvalCount, response.EvalCount
	if promptTokens == 0 {
		promptTokens = usage.EstimateTokens(req.SystemMessage + req.Prompt)
	}
	if completionTokens == 0 {
		completionTokens = usage.EstimateTokens(response.Response)
	}
	g.client.record(g.client.genModel, promptTokens, completionTokens)

	text := strings.TrimSpace(response.Response)
	if req.ResponseFormat == domain.ResponseFormatJSONObject {
		text = extractJSONObject(text)
	}
	return text, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
