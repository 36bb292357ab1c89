// Package usage accumulates per-model token usage and estimated spend.
// A Ledger is created by the composition root and handed to every model
// client that should be accounted for; there is no package-level state.
package usage

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

// Price is USD per 1K tokens.
type Price struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// DefaultPrices covers the models the service is usually configured with.
var DefaultPrices = map[string]Price{
	"gpt-4o":                 {PromptPer1K: 0.0025, CompletionPer1K: 0.01},
	"gpt-4o-mini":            {PromptPer1K: 0.00015, CompletionPer1K: 0.0006},
	"gpt-4-turbo-preview":    {PromptPer1K: 0.01, CompletionPer1K: 0.03},
	"text-embedding-3-small": {PromptPer1K: 0.00002},
	"text-embedding-ada-002": {PromptPer1K: 0.0001},
}

// Observer is notified of every recorded usage, e.g. to feed Prometheus.
type Observer func(usage domain.TokenUsage)

type Ledger struct {
	mu       sync.Mutex
	prices   map[string]Price
	models   map[string]*domain.ModelUsage
	observer Observer
}

func NewLedger(prices map[string]Price) *Ledger {
	if prices == nil {
		prices = DefaultPrices
	}
	return &Ledger{
		prices: prices,
		models: make(map[string]*domain.ModelUsage),
	}
}

func (l *Ledger) WithObserver(observer Observer) *Ledger {
	l.observer = observer
	return l
}

func (l *Ledger) Record(u domain.TokenUsage) {
	model := strings.TrimSpace(u.Model)
	if model == "" {
		model = "unknown"
	}
	u.Model = model

	l.mu.Lock()
	m, ok := l.models[model]
	if !ok {
		m = &domain.ModelUsage{Model: model}
		l.models[model] = m
	}
	m.Requests++
	m.PromptTokens += int64(u.PromptTokens)
	m.CompletionTokens += int64(u.CompletionTokens)
	m.TotalTokens = m.PromptTokens + m.CompletionTokens
	if price, ok := l.prices[model]; ok {
		m.EstimatedCostUSD += float64(u.PromptTokens)/1000*price.PromptPer1K +
			float64(u.CompletionTokens)/1000*price.CompletionPer1K
	}
	observer := l.observer
	l.mu.Unlock()

	if observer != nil {
		observer(u)
	}
}

// Snapshot returns usage for every model, sorted by model name.
func (l *Ledger) Snapshot() []domain.ModelUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.ModelUsage, 0, len(l.models))
	for _, m := range l.models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

func (l *Ledger) ForModel(model string) (domain.ModelUsage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.models[model]
	if !ok {
		return domain.ModelUsage{}, false
	}
	return *m, true
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.models = make(map[string]*domain.ModelUsage)
}

// EstimateTokens is the characters/4 heuristic used when a provider does not
// report usage.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
