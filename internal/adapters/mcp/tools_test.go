package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type reviewerFake struct {
	err     error
	lastDoc domain.Document
	genre   string
}

func (f *reviewerFake) ReviewManuscript(_ context.Context, doc domain.Document, genre string) (*domain.SeniorAgentReview, error) {
	f.lastDoc, f.genre = doc, genre
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SeniorAgentReview{DocumentID: "doc-1", Title: doc.Title, OverallSummary: "A tight thriller."}, nil
}

type questionerFake struct {
	topK int
}

func (f *questionerFake) AnswerFromDocument(_ context.Context, _ domain.Document, question string, topK int) (*domain.Answer, error) {
	f.topK = topK
	return &domain.Answer{Text: "answer to " + question}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestReviewToolReturnsJSON(t *testing.T) {
	reviewer := &reviewerFake{}
	tool := NewReviewTool(reviewer)

	res, err := tool.Handle(context.Background(), callRequest("review_manuscript", map[string]any{
		"content": "Chapter 1\nIt begins.", "title": "Night", "genre": "thriller",
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var review domain.SeniorAgentReview
	if err := json.Unmarshal([]byte(resultText(t, res)), &review); err != nil {
		t.Fatalf("unmarshal review: %v", err)
	}
	if review.Title != "Night" || reviewer.genre != "thriller" {
		t.Fatalf("unexpected review %+v genre=%q", review, reviewer.genre)
	}
}

func TestReviewToolRequiresContent(t *testing.T) {
	res, err := NewReviewTool(&reviewerFake{}).Handle(context.Background(), callRequest("review_manuscript", map[string]any{}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing content")
	}
}

func TestReviewToolReportsFailedStage(t *testing.T) {
	reviewer := &reviewerFake{err: &domain.ReviewStageError{Stage: domain.StageSummary, Err: errors.New("model down")}}

	res, err := NewReviewTool(reviewer).Handle(context.Background(), callRequest("review_manuscript", map[string]any{"content": "x"}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	if got := resultText(t, res); got != "review failed at stage summary: review stage summary: model down" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAskToolPassesTopK(t *testing.T) {
	questioner := &questionerFake{}
	res, err := NewAskTool(questioner).Handle(context.Background(), callRequest("ask_manuscript", map[string]any{
		"content": "Chapter 1\nBob leaves town.", "question": "Where is Bob?", "top_k": float64(2),
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if questioner.topK != 2 {
		t.Fatalf("expected top_k 2, got %d", questioner.topK)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("test", &reviewerFake{}, &questionerFake{})
	tools := s.ListTools()
	for _, name := range []string{"review_manuscript", "ask_manuscript"} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("expected tool %s to be registered", name)
		}
	}
}
