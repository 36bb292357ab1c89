package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func init() {
	color.NoColor = true
}

func TestLoadManuscriptNormalizesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "the_long_night.txt")
	if err := os.WriteFile(path, []byte("\uFEFFChapter 1\r\nIt was dark.\r\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := loadManuscript(path)
	if err != nil {
		t.Fatalf("loadManuscript() error = %v", err)
	}
	if doc.Content != "Chapter 1\nIt was dark." || doc.Title != "the_long_night" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestLoadManuscriptRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := loadManuscript(path); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestChunksCommandPrintsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novel.txt")
	if err := os.WriteFile(path, []byte("Chapter 1\nAlice meets Bob.\n\nChapter 2\nBob leaves town."), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"chunks", "--json", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), `"chapter_number": 2`) {
		t.Fatalf("expected two chapters in output: %s", out.String())
	}
}

func TestRenderReviewListsIssues(t *testing.T) {
	var out bytes.Buffer
	renderReview(&out, &domain.SeniorAgentReview{
		Title:          "Night",
		OverallSummary: "A tense story.",
		AspectAnalyses: map[string]string{domain.AspectPlot: "ok", "dialogue": "Sharp."},
		Issues: []domain.IssueAndSuggestion{
			{Category: "plot", Severity: domain.SeverityMajor, Description: "Sagging middle", Location: "Chapters 8-12", Suggestion: "Cut"},
		},
	})

	got := out.String()
	for _, want := range []string{"Review of Night", "A tense story.", "- [major] plot: Sagging middle", "where: Chapters 8-12", "dialogue\nSharp."} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestPreviewTruncatesOnRunes(t *testing.T) {
	if got := preview("héllo   wörld", 7); got != "héllo w..." {
		t.Fatalf("unexpected preview %q", got)
	}
}
