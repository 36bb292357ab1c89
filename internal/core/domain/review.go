package domain

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// ParseSeverity accepts the three known severities in any case.
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityCritical, SeverityMajor, SeverityMinor:
		return s, nil
	default:
		return "", fmt.Errorf("unknown severity %q", raw)
	}
}

// Rank orders severities for sorting, critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

type IssueAndSuggestion struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	Suggestion  string   `json:"suggestion"`
}

// ReviewAspect is one retrieval-backed analysis question asked of a manuscript.
type ReviewAspect struct {
	Key      string `json:"key" yaml:"key"`
	Title    string `json:"title" yaml:"title"`
	Question string `json:"question" yaml:"question"`
}

const (
	AspectPlot      = "plot"
	AspectCharacter = "character"
	AspectStyle     = "style"
	AspectStructure = "structure"
)

type SeniorAgentReview struct {
	DocumentID          string               `json:"document_id"`
	Title               string               `json:"title,omitempty"`
	Genre               string               `json:"genre,omitempty"`
	OverallSummary      string               `json:"overall_summary"`
	PlotAnalysis        string               `json:"plot_analysis"`
	CharacterAnalysis   string               `json:"character_analysis"`
	StyleAnalysis       string               `json:"style_analysis"`
	StructureAnalysis   string               `json:"structure_analysis"`
	AspectAnalyses      map[string]string    `json:"aspect_analyses,omitempty"`
	Issues              []IssueAndSuggestion `json:"issues"`
	Recommendations     string               `json:"recommendations"`
	ChunkCount          int                  `json:"chunk_count"`
	EstimatedTokensUsed int                  `json:"estimated_tokens_used"`
	ReviewedAt          time.Time            `json:"reviewed_at"`
}

const (
	PromptSummary         = "summary"
	PromptIssues          = "issues"
	PromptRecommendations = "recommendations"
)

// PromptData is the input of every review prompt template.
type PromptData struct {
	Title   string
	Genre   string
	Excerpt string
	Summary string
	Aspects []AspectAnalysis
	Issues  []IssueAndSuggestion
}

type AspectAnalysis struct {
	Title    string
	Analysis string
}

// ReviewSettings tunes the review pipeline. Zero values select defaults.
type ReviewSettings struct {
	MaxChunkSize    int
	SummaryChunks   int
	AspectTopK      int
	IssueTopK       int
	ParallelAspects bool
	Temperature     float64
	MaxTokens       int
}

// QuerySettings tunes retrieval-augmented question answering.
type QuerySettings struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}
