// Package mcpadapter exposes the review engine as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

type ReviewTool struct {
	reviewer ports.ManuscriptReviewer
}

func NewReviewTool(reviewer ports.ManuscriptReviewer) *ReviewTool {
	return &ReviewTool{reviewer: reviewer}
}

func (t *ReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("review_manuscript",
		mcp.WithDescription("Run a senior literary agent review of a manuscript: summary, "+
			"plot/character/style/structure analysis, issues with severity and recommendations."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full manuscript text.")),
		mcp.WithString("title", mcp.Description("Manuscript title.")),
		mcp.WithString("genre", mcp.Description("Genre, used to tune the review.")),
	)
}

func (t *ReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	review, err := t.reviewer.ReviewManuscript(ctx, domain.Document{
		Title:   req.GetString("title", ""),
		Content: content,
	}, req.GetString("genre", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(review)
}

type AskTool struct {
	questioner ports.ManuscriptQuestioner
}

func NewAskTool(questioner ports.ManuscriptQuestioner) *AskTool {
	return &AskTool{questioner: questioner}
}

func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("ask_manuscript",
		mcp.WithDescription("Answer a question about a manuscript using only the passages most similar to it."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full manuscript text.")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer.")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to retrieve (default 3).")),
	)
}

func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := req.GetInt("top_k", 0)
	if topK < 0 {
		return mcp.NewToolResultError("top_k must not be negative"), nil
	}

	answer, err := t.questioner.AnswerFromDocument(ctx, domain.Document{Content: content}, question, topK)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(answer)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError reports domain failures to the model as tool errors rather than
// protocol errors, so the caller can read and react to them.
func toolError(err error) *mcp.CallToolResult {
	if stage, ok := domain.FailedStage(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("review failed at stage %s: %v", stage, err))
	}
	return mcp.NewToolResultError(err.Error())
}
