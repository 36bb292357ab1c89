package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.SystemMessage) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemMessage})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:     g.client.chatModel,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		payload.Temperature = &temperature
	}
	if req.ResponseFormat == domain.ResponseFormatJSONObject {
		payload.ResponseFormat = &responseFormat{Type: string(domain.ResponseFormatJSONObject)}
	}

	var response struct {
		Model   string `json:"model"`
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Usage usagePayload `json:"usage"`
	}
	if err := g.client.postJSON(ctx, "/chat/completions", payload, &response, "chat"); err != nil {
		return "", err
	}
	g.client.record(g.client.chatModel, response.Usage)

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrCollaborator, "openai chat", fmt.Errorf("response has no choices"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
