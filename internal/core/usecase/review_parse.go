package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

type issuePayload struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Suggestion  string `json:"suggestion"`
}

type issuesPayload struct {
	Issues *[]issuePayload `json:"issues"`
}

// parseIssues decodes the issue-extraction response. Models sometimes wrap
// the object in prose or code fences, or return a bare array.
func parseIssues(raw string) ([]domain.IssueAndSuggestion, error) {
	body := stripCodeFence(strings.TrimSpace(raw))

	var items []issuePayload
	switch {
	case strings.HasPrefix(body, "["):
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, domain.WrapError(domain.ErrCollaborator, "parse issues", err)
		}
	default:
		var payload issuesPayload
		if err := json.Unmarshal([]byte(extractJSONObject(body)), &payload); err != nil {
			return nil, domain.WrapError(domain.ErrCollaborator, "parse issues", err)
		}
		if payload.Issues == nil {
			return nil, domain.WrapError(domain.ErrCollaborator, "parse issues", errors.New(`missing "issues" field`))
		}
		items = *payload.Issues
	}

	out := make([]domain.IssueAndSuggestion, 0, len(items))
	for i, item := range items {
		severity, err := domain.ParseSeverity(item.Severity)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCollaborator, "parse issues", fmt.Errorf("issue %d: %w", i, err))
		}
		if strings.TrimSpace(item.Description) == "" {
			return nil, domain.WrapError(domain.ErrCollaborator, "parse issues", fmt.Errorf("issue %d: empty description", i))
		}
		out = append(out, domain.IssueAndSuggestion{
			Category:    strings.ToLower(strings.TrimSpace(item.Category)),
			Severity:    severity,
			Description: strings.TrimSpace(item.Description),
			Location:    strings.TrimSpace(item.Location),
			Suggestion:  strings.TrimSpace(item.Suggestion),
		})
	}
	return out, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
