// Package openai talks to the OpenAI REST API (or any compatible endpoint)
// for chat completions and embeddings.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
	"github.com/kirillkom/manuscript-review/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultEmbedBatchSize = 96
)

type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	batchSize  int
	httpClient *http.Client
	executor   *resilience.Executor
	usage      ports.UsageRecorder
}

func New(baseURL, apiKey, chatModel, embedModel string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		batchSize:  DefaultEmbedBatchSize,
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

func (c *Client) WithEmbedBatchSize(size int) *Client {
	if size > 0 {
		c.batchSize = size
	}
	return c
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (c *Client) record(model string, u usagePayload) {
	if c.usage == nil {
		return
	}
	c.usage.Record(domain.TokenUsage{
		Model:            model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	})
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	_, err = resilience.Call(ctx, c.executor, "openai."+operation, resilience.ClassifyHTTPError, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.doPost(callCtx, path, body, out, operation)
	})
	return resilience.WrapCollaboratorError("openai "+operation, err)
}

func (c *Client) doPost(ctx context.Context, path string, body []byte, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("openai", operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
