package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func TestDefaultCatalogHasFourAspects(t *testing.T) {
	c := Default()

	keys := make([]string, 0, len(c.Aspects))
	for _, a := range c.Aspects {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{domain.AspectPlot, domain.AspectCharacter, domain.AspectStyle, domain.AspectStructure}, keys)
	assert.Contains(t, c.AnswerSystemMessage(), "not contained in")

	aspects := c.ReviewAspects()
	aspects[0].Key = "changed"
	assert.Equal(t, domain.AspectPlot, c.Aspects[0].Key)
}

func TestRenderTemplatesWithGenre(t *testing.T) {
	c := Default()

	question, err := c.RenderPrompt(domain.AspectStage(c.Aspects[0].Key), domain.PromptData{Genre: "thriller"})
	require.NoError(t, err)
	assert.Contains(t, question, "for a thriller manuscript")

	issues, err := c.RenderPrompt(domain.PromptIssues, domain.PromptData{})
	require.NoError(t, err)
	assert.Contains(t, issues, `"issues"`)
	assert.NotContains(t, issues, "as a  title")

	recs, err := c.RenderPrompt(domain.PromptRecommendations, domain.PromptData{
		Summary: "A heist goes wrong.",
		Aspects: []domain.AspectAnalysis{{Title: "Plot and pacing", Analysis: "Slow middle."}},
		Issues: []domain.IssueAndSuggestion{{
			Category: "plot", Severity: domain.SeverityMajor, Description: "Sagging middle", Location: "Chapters 8-12",
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, recs, "A heist goes wrong.")
	assert.Contains(t, recs, "Slow middle.")
	assert.Contains(t, recs, "- [major] plot: Sagging middle (Chapters 8-12)")
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `answer_system: answer from context
summary: "Summarize {{.Excerpt}}"
issues: "List issues"
recommendations: "Recommend for {{.Summary}}"
aspects:
  - key: pacing
    question: "How is the pacing?"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Aspects, 1)
	assert.Equal(t, "pacing", c.Aspects[0].Title)

	out, err := c.RenderPrompt(domain.PromptSummary, domain.PromptData{Excerpt: "the opening"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize the opening", out)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"no aspects": `answer_system: a
summary: s
issues: i
recommendations: r
`,
		"duplicate aspect": `answer_system: a
summary: s
issues: i
recommendations: r
aspects:
  - {key: plot, question: q}
  - {key: plot, question: q}
`,
		"bad template": `answer_system: a
summary: "{{.Nope"
issues: i
recommendations: r
aspects:
  - {key: plot, question: q}
`,
		"missing issues": `answer_system: a
summary: s
recommendations: r
aspects:
  - {key: plot, question: q}
`,
	}
	for name, body := range cases {
		_, err := Parse([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
