package handler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/infrastructure/persistence"
	infrasearch "github.com/kodit-ai/kodit/infrastructure/search"
)

// countingEmbedder returns a fixed vector per text and counts texts embedded.
type countingEmbedder struct {
	calls int32
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	atomic.AddInt32(&e.calls, int32(len(texts)))
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

type embedFixture struct {
	snippets *persistence.SnippetStore
	vectors  *infrasearch.VectorStore
	embedder *countingEmbedder
	handler  *EmbedSnippets

	commitID int64
}

func newEmbedFixture(t *testing.T, contents []string) *embedFixture {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()

	repos := persistence.NewRepositoryStore(db)
	commits := persistence.NewCommitStore(db)
	snippets := persistence.NewSnippetStore(db)
	vectors := infrasearch.NewVectorStore(db)

	repo, err := repository.NewRepository("https://example.com/repo.git")
	require.NoError(t, err)
	repo, err = repos.Save(ctx, repo)
	require.NoError(t, err)
	commit, err := commits.Save(ctx, repository.NewCommit(repo.ID(), "c1", "", repository.NewAuthor("dev", "dev@example.com"), "initial", time.Now().UTC()))
	require.NoError(t, err)

	snips := make([]snippet.Snippet, len(contents))
	for i, content := range contents {
		snips[i] = snippet.New(commit.ID(), "pkg/file.py", snippet.LanguagePython, content)
	}
	_, err = snippets.ReplaceForCommit(ctx, commit.ID(), snips)
	require.NoError(t, err)

	embedder := &countingEmbedder{}
	return &embedFixture{
		snippets: snippets,
		vectors:  vectors,
		embedder: embedder,
		handler:  NewEmbedSnippets(snippets, vectors, embedder, search.DefaultTokenBudget(), NewTrackerFactory(quietLogger()), quietLogger()),
		commitID: commit.ID(),
	}
}

func TestEmbedSnippetsStoresCodeVectors(t *testing.T) {
	f := newEmbedFixture(t, []string{"def a(): pass", "def b(): pass"})
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": f.commitID}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.embedder.calls))

	snips, err := f.snippets.ForCommit(ctx, f.commitID)
	require.NoError(t, err)
	shas := []string{snips[0].SHA(), snips[1].SHA()}
	existing, err := f.vectors.ExistingSHAs(ctx, search.KindCode, shas)
	require.NoError(t, err)
	assert.True(t, existing[shas[0]])
	assert.True(t, existing[shas[1]])
}

func TestEmbedSnippetsSkipsExistingHashes(t *testing.T) {
	f := newEmbedFixture(t, []string{"def a(): pass"})
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": f.commitID}))
	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": f.commitID}))

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.embedder.calls), "re-running must not re-embed known content")
}

func TestEmbedSnippetsDeduplicatesIdenticalContent(t *testing.T) {
	// Same content in two snippets of one commit shares a hash.
	f := newEmbedFixture(t, []string{"def a(): pass", "def a(): pass"})
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": f.commitID}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.embedder.calls))
}

func TestEmbedSnippetsMissingPayload(t *testing.T) {
	f := newEmbedFixture(t, nil)
	err := f.handler.Execute(context.Background(), map[string]any{"repository_id": int64(1)})
	require.ErrorIs(t, err, ErrMissingPayloadField)
}

func TestEmbedSnippetsEmptyCommit(t *testing.T) {
	f := newEmbedFixture(t, nil)
	require.NoError(t, f.handler.Execute(context.Background(), map[string]any{"commit_id": f.commitID}))
	assert.Zero(t, atomic.LoadInt32(&f.embedder.calls))
}
