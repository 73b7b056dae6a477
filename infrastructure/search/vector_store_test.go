package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/internal/database"
)

func vectorStore(t *testing.T) *VectorStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EmbeddingModel{}))
	return NewVectorStore(database.FromGorm(db))
}

func TestVectorStoreTopKRanksByCosine(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	// Query vector points at "hello"; doc A is close, doc B is orthogonal.
	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("sha-hello", search.KindCode, []float64{1, 0.1, 0}),
		search.NewEmbedding("sha-goodbye", search.KindCode, []float64{0, 1, 0.1}),
	}))

	results, err := store.TopK(ctx, search.KindCode, []float64{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sha-hello", results[0].SHA())
	assert.Greater(t, results[0].Similarity(), results[1].Similarity())
}

func TestVectorStoreTopKRestrict(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{1, 0}),
		search.NewEmbedding("b", search.KindCode, []float64{1, 0}),
	}))

	results, err := store.TopK(ctx, search.KindCode, []float64{1, 0}, 10, []string{"b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].SHA())
}

func TestVectorStoreKindsSeparate(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{1, 0}),
	}))

	results, err := store.TopK(ctx, search.KindText, []float64{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStorePutUpserts(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{1, 0}),
	}))
	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{0, 1}),
	}))

	results, err := store.TopK(ctx, search.KindCode, []float64{0, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity(), 1e-9)
}

func TestVectorStoreExistingSHAs(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{1}),
		search.NewEmbedding("b", search.KindText, []float64{1}),
	}))

	existing, err := store.ExistingSHAs(ctx, search.KindCode, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, existing["a"])
	assert.False(t, existing["b"])
	assert.False(t, existing["c"])
}

func TestVectorStoreDeleteBySHAs(t *testing.T) {
	ctx := context.Background()
	store := vectorStore(t)

	require.NoError(t, store.Put(ctx, []search.Embedding{
		search.NewEmbedding("a", search.KindCode, []float64{1}),
		search.NewEmbedding("a", search.KindText, []float64{1}),
		search.NewEmbedding("b", search.KindCode, []float64{1}),
	}))
	require.NoError(t, store.DeleteBySHAs(ctx, []string{"a"}))

	existing, err := store.ExistingSHAs(ctx, search.KindCode, []string{"a", "b"})
	require.NoError(t, err)
	assert.False(t, existing["a"])
	assert.True(t, existing["b"])

	text, err := store.ExistingSHAs(ctx, search.KindText, []string{"a"})
	require.NoError(t, err)
	assert.False(t, text["a"])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}
