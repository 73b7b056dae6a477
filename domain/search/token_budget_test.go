package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(texts ...string) []Document {
	var ds []Document
	for i, text := range texts {
		ds = append(ds, NewDocument(int64(i+1), "", text))
	}
	return ds
}

func TestNewTokenBudgetRejectsNonPositive(t *testing.T) {
	_, err := NewTokenBudget(0)
	assert.Error(t, err)

	_, err = NewTokenBudget(-5)
	assert.Error(t, err)
}

func TestTruncateCountsRunes(t *testing.T) {
	budget, err := NewTokenBudget(3)
	require.NoError(t, err)

	assert.Equal(t, "abc", budget.Truncate("abcdef"))
	assert.Equal(t, "ab", budget.Truncate("ab"))
	assert.Equal(t, "héé", budget.Truncate("hééllo"))
}

func TestBatchesPreservesOrder(t *testing.T) {
	budget, err := NewTokenBudget(10)
	require.NoError(t, err)
	budget = budget.WithMaxBatchSize(100)

	batches := budget.Batches(docs("aaaa", "bbbb", "cccc", "dddd"))
	require.Len(t, batches, 2)
	assert.Equal(t, int64(1), batches[0][0].SnippetID())
	assert.Equal(t, int64(2), batches[0][1].SnippetID())
	assert.Equal(t, int64(3), batches[1][0].SnippetID())
	assert.Equal(t, int64(4), batches[1][1].SnippetID())
}

func TestBatchesOversizeDocumentTravelsAlone(t *testing.T) {
	budget, err := NewTokenBudget(5)
	require.NoError(t, err)
	budget = budget.WithMaxBatchSize(100)

	batches := budget.Batches(docs("aa", strings.Repeat("x", 50), "bb"))
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 1)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, int64(2), batches[1][0].SnippetID())
}

func TestBatchesRespectsCountCap(t *testing.T) {
	budget, err := NewTokenBudget(1000)
	require.NoError(t, err)
	budget = budget.WithMaxBatchSize(2)

	batches := budget.Batches(docs("a", "b", "c", "d", "e"))
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestBatchesEmptyInput(t *testing.T) {
	assert.Nil(t, DefaultTokenBudget().Batches(nil))
}

func TestWithMaxBatchSizeZeroMeansUncapped(t *testing.T) {
	budget := DefaultTokenBudget().WithMaxBatchSize(0)
	batches := budget.Batches(docs("a", "b"))
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestEmbeddingValueSemantics(t *testing.T) {
	vec := []float64{1, 2, 3}
	e := NewEmbedding("sha", KindCode, vec)
	vec[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, e.Vector())

	out := e.Vector()
	out[1] = 42
	assert.Equal(t, []float64{1, 2, 3}, e.Vector())

	r := ReconstructEmbedding(7, "sha", KindText, vec)
	assert.Equal(t, int64(7), r.ID())
	assert.Equal(t, KindText, r.Kind())
}
