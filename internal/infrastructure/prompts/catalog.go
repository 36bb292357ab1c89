// Package prompts loads the review prompt catalog: the Q&A system message,
// the per-aspect questions and the summary/issues/recommendations templates.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	AnswerSystem    string                `yaml:"answer_system"`
	Summary         string                `yaml:"summary"`
	Aspects         []domain.ReviewAspect `yaml:"aspects"`
	Issues          string                `yaml:"issues"`
	Recommendations string                `yaml:"recommendations"`

	templates *template.Template
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalog: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) compile() error {
	if strings.TrimSpace(c.AnswerSystem) == "" {
		return errors.New("prompt catalog: answer_system is required")
	}
	if len(c.Aspects) == 0 {
		return errors.New("prompt catalog: at least one aspect is required")
	}

	root := template.New("catalog").Option("missingkey=error")
	named := map[string]string{
		domain.PromptSummary:         c.Summary,
		domain.PromptIssues:          c.Issues,
		domain.PromptRecommendations: c.Recommendations,
	}
	seen := make(map[string]struct{}, len(c.Aspects))
	for i, aspect := range c.Aspects {
		key := strings.TrimSpace(aspect.Key)
		if key == "" || strings.TrimSpace(aspect.Question) == "" {
			return fmt.Errorf("prompt catalog: aspect %d needs key and question", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("prompt catalog: duplicate aspect %q", key)
		}
		seen[key] = struct{}{}
		if aspect.Title == "" {
			c.Aspects[i].Title = key
		}
		c.Aspects[i].Key = key
		named[domain.AspectStage(key)] = aspect.Question
	}

	for name, text := range named {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("prompt catalog: %s template is required", name)
		}
		if _, err := root.New(name).Parse(text); err != nil {
			return fmt.Errorf("prompt catalog: parse %s: %w", name, err)
		}
	}
	c.templates = root
	return nil
}

func (c *Catalog) AnswerSystemMessage() string {
	return strings.TrimSpace(c.AnswerSystem)
}

// ReviewAspects returns a copy of the configured aspects in catalog order.
func (c *Catalog) ReviewAspects() []domain.ReviewAspect {
	return append([]domain.ReviewAspect(nil), c.Aspects...)
}

// RenderPrompt executes the named template. Aspect questions are named by
// domain.AspectStage(key).
func (c *Catalog) RenderPrompt(name string, data domain.PromptData) (string, error) {
	var b strings.Builder
	if err := c.templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

