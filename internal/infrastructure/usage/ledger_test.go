package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

func TestLedgerAccumulatesPerModel(t *testing.T) {
	ledger := NewLedger(map[string]Price{"gpt-4o": {PromptPer1K: 1, CompletionPer1K: 2}})

	ledger.Record(domain.TokenUsage{Model: "gpt-4o", PromptTokens: 1000, CompletionTokens: 500})
	ledger.Record(domain.TokenUsage{Model: "gpt-4o", PromptTokens: 500})
	ledger.Record(domain.TokenUsage{Model: "text-embedding-3-small", PromptTokens: 42})

	got, ok := ledger.ForModel("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Requests)
	assert.Equal(t, int64(1500), got.PromptTokens)
	assert.Equal(t, int64(500), got.CompletionTokens)
	assert.Equal(t, int64(2000), got.TotalTokens)
	assert.InDelta(t, 2.5, got.EstimatedCostUSD, 1e-9)

	snapshot := ledger.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "gpt-4o", snapshot[0].Model)
	assert.Equal(t, 0.0, snapshot[1].EstimatedCostUSD)
}

func TestLedgerResetAndUnknownModel(t *testing.T) {
	ledger := NewLedger(nil)
	ledger.Record(domain.TokenUsage{PromptTokens: 3})

	_, ok := ledger.ForModel("unknown")
	assert.True(t, ok)

	ledger.Reset()
	assert.Empty(t, ledger.Snapshot())
}

func TestLedgerNotifiesObserverConcurrently(t *testing.T) {
	var mu sync.Mutex
	seen := 0
	ledger := NewLedger(nil).WithObserver(func(domain.TokenUsage) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Record(domain.TokenUsage{Model: "m", PromptTokens: 1})
		}()
	}
	wg.Wait()

	got, _ := ledger.ForModel("m")
	assert.Equal(t, int64(20), got.Requests)
	assert.Equal(t, 20, seen)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
}
