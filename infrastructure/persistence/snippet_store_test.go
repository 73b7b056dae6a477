package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/domain/snippet"
)

func TestSnippetStoreReplaceForCommit(t *testing.T) {
	ctx := context.Background()
	store := NewSnippetStore(testDB(t))

	first, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "a.py", snippet.LanguagePython, "def a(): pass"),
		snippet.New(1, "b.py", snippet.LanguagePython, "def b(): pass"),
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.NotZero(t, first[0].ID())

	// A re-extraction replaces the set wholesale.
	second, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "c.py", snippet.LanguagePython, "def c(): pass"),
	})
	require.NoError(t, err)
	require.Len(t, second, 1)

	stored, err := store.ForCommit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "c.py", stored[0].FilePath())
}

func TestSnippetStoreReplaceLeavesOtherCommitsAlone(t *testing.T) {
	ctx := context.Background()
	store := NewSnippetStore(testDB(t))

	_, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "a.py", snippet.LanguagePython, "def a(): pass"),
	})
	require.NoError(t, err)
	_, err = store.ReplaceForCommit(ctx, 2, []snippet.Snippet{
		snippet.New(2, "b.py", snippet.LanguagePython, "def b(): pass"),
	})
	require.NoError(t, err)

	stored, err := store.ForCommit(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSnippetStoreBySHAs(t *testing.T) {
	ctx := context.Background()
	store := NewSnippetStore(testDB(t))

	saved, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "a.py", snippet.LanguagePython, "def a(): pass"),
		snippet.New(1, "b.py", snippet.LanguagePython, "def b(): pass"),
	})
	require.NoError(t, err)

	found, err := store.BySHAs(ctx, []string{saved[0].SHA()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a.py", found[0].FilePath())

	none, err := store.BySHAs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnippetStoreSaveEnrichment(t *testing.T) {
	ctx := context.Background()
	store := NewSnippetStore(testDB(t))

	saved, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "a.py", snippet.LanguagePython, "def a(): pass"),
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveEnrichment(ctx, saved[0].ID(), "a no-op function"))

	stored, err := store.ByIDs(ctx, []int64{saved[0].ID()})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "a no-op function", stored[0].Enrichment())
	assert.True(t, stored[0].HasEnrichment())
}

func TestSnippetStoreCount(t *testing.T) {
	ctx := context.Background()
	store := NewSnippetStore(testDB(t))

	_, err := store.ReplaceForCommit(ctx, 1, []snippet.Snippet{
		snippet.New(1, "a.py", snippet.LanguagePython, "def a(): pass"),
		snippet.New(1, "b.go", snippet.LanguageGo, "func b() {}"),
	})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
