package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelColor   = color.New(color.FgGreen, color.Bold).SprintFunc()
	mutedColor   = color.New(color.Faint).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

var severityColors = map[domain.Severity]*color.Color{
	domain.SeverityCritical: color.New(color.FgRed, color.Bold),
	domain.SeverityMajor:    color.New(color.FgYellow, color.Bold),
	domain.SeverityMinor:    color.New(color.FgBlue),
}

func renderChunks(w io.Writer, chunks []domain.DocumentChunk) {
	fmt.Fprintf(w, "%s %d\n\n", headingColor("Chunks:"), len(chunks))
	for _, c := range chunks {
		fmt.Fprintf(w, "%s %s\n", labelColor(fmt.Sprintf("#%d", c.ChunkIndex)),
			mutedColor(fmt.Sprintf("chapter %d, chars %d-%d", c.ChapterNumber, c.StartPosition, c.EndPosition)))
		fmt.Fprintln(w, preview(c.Content, 160))
		fmt.Fprintln(w)
	}
}

func renderAnswer(w io.Writer, answer *domain.Answer) {
	fmt.Fprintln(w, headingColor("Answer"))
	fmt.Fprintln(w, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingColor("Sources"))
	for _, s := range answer.Sources {
		fmt.Fprintf(w, "%s %s %s\n",
			labelColor(fmt.Sprintf("[%.3f]", s.Similarity)),
			mutedColor(fmt.Sprintf("chapter %d, chunk %d:", s.Chunk.ChapterNumber, s.Chunk.ChunkIndex)),
			preview(s.Chunk.Content, 100))
	}
}

func renderReview(w io.Writer, review *domain.SeniorAgentReview) {
	title := review.Title
	if title == "" {
		title = review.DocumentID
	}
	fmt.Fprintf(w, "%s %s\n", headingColor("Review of"), title)
	fmt.Fprintln(w, mutedColor(fmt.Sprintf("%d chunks, ~%d tokens", review.ChunkCount, review.EstimatedTokensUsed)))

	section(w, "Overall summary", review.OverallSummary)
	section(w, "Plot and pacing", review.PlotAnalysis)
	section(w, "Character development", review.CharacterAnalysis)
	section(w, "Writing style", review.StyleAnalysis)
	section(w, "Structure and organization", review.StructureAnalysis)

	extra := make([]string, 0, len(review.AspectAnalyses))
	for key := range review.AspectAnalyses {
		switch key {
		case domain.AspectPlot, domain.AspectCharacter, domain.AspectStyle, domain.AspectStructure:
		default:
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		section(w, key, review.AspectAnalyses[key])
	}

	fmt.Fprintf(w, "\n%s %d\n", headingColor("Issues:"), len(review.Issues))
	for _, issue := range review.Issues {
		sev := string(issue.Severity)
		if c, ok := severityColors[issue.Severity]; ok {
			sev = c.Sprint(sev)
		}
		fmt.Fprintf(w, "- [%s] %s: %s\n", sev, issue.Category, issue.Description)
		if issue.Location != "" {
			fmt.Fprintf(w, "  %s %s\n", mutedColor("where:"), issue.Location)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "  %s %s\n", mutedColor("fix:"), issue.Suggestion)
		}
	}

	section(w, "Recommendations", review.Recommendations)
}

func renderUsage(w io.Writer, usage []domain.ModelUsage) {
	for _, u := range usage {
		fmt.Fprintln(w, mutedColor(fmt.Sprintf("%s: %d requests, %d tokens, ~$%.4f",
			u.Model, u.Requests, u.TotalTokens, u.EstimatedCostUSD)))
	}
}

func section(w io.Writer, heading, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", headingColor(heading), body)
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
