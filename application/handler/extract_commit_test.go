package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/persistence"
	infrasearch "github.com/kodit-ai/kodit/infrastructure/search"
	"github.com/kodit-ai/kodit/infrastructure/slicing"
	"github.com/kodit-ai/kodit/internal/database"
)

const pythonSource = `import os

def hello(name):
    return "hello " + name

def goodbye(name):
    return "goodbye " + name
`

type extractFixture struct {
	repos    *persistence.RepositoryStore
	commits  *persistence.CommitStore
	files    *persistence.FileStore
	snippets *persistence.SnippetStore
	tasks    *persistence.TaskStore
	keyword  *infrasearch.BM25Index
	handler  *ExtractCommit
}

func newExtractFixture(t *testing.T, adapter *fakeAdapter, embed, enrich bool) *extractFixture {
	t.Helper()
	db := testDB(t)
	repos := persistence.NewRepositoryStore(db)
	commits := persistence.NewCommitStore(db)
	files := persistence.NewFileStore(db)
	snippets := persistence.NewSnippetStore(db)
	tasks := persistence.NewTaskStore(db)
	keyword := infrasearch.NewBM25Index()

	logger := quietLogger()
	scanner := git.NewRepositoryScanner(adapter, logger)
	queue := service.NewQueue(tasks, logger)
	trackers := NewTrackerFactory(logger)

	return &extractFixture{
		repos:    repos,
		commits:  commits,
		files:    files,
		snippets: snippets,
		tasks:    tasks,
		keyword:  keyword,
		handler: NewExtractCommit(
			repos, commits, files, snippets,
			scanner, slicing.NewSlicer(), keyword,
			queue, trackers, embed, enrich, logger,
		),
	}
}

func (f *extractFixture) seedCommit(t *testing.T, uri string) repository.Commit {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.NewRepository(uri)
	require.NoError(t, err)
	repo = repo.WithWorkingCopy(repository.NewWorkingCopy(t.TempDir(), repo.SanitizedURI()))
	repo, err = f.repos.Save(ctx, repo)
	require.NoError(t, err)

	commit := repository.NewCommit(repo.ID(), "c1", "", repository.NewAuthor("dev", "dev@example.com"), "initial", time.Now().UTC())
	commit, err = f.commits.Save(ctx, commit)
	require.NoError(t, err)
	return commit
}

func sourceAdapter() *fakeAdapter {
	return &fakeAdapter{
		files: []git.FileInfo{
			{Path: "app/main.py", BlobSHA: "b1", MimeType: "text/x-python", Size: int64(len(pythonSource))},
			{Path: "README.md", BlobSHA: "b2", MimeType: "text/markdown", Size: 10},
		},
		contents: map[string][]byte{
			"app/main.py": []byte(pythonSource),
			"README.md":   []byte("# readme\n"),
		},
	}
}

func TestExtractCommitSlicesSupportedFiles(t *testing.T) {
	f := newExtractFixture(t, sourceAdapter(), true, true)
	commit := f.seedCommit(t, "https://example.com/repo.git")
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"repository_id": commit.RepoID(), "commit_id": commit.ID()}))

	snips, err := f.snippets.ForCommit(ctx, commit.ID())
	require.NoError(t, err)
	require.Len(t, snips, 2, "one snippet per function definition")
	for _, sn := range snips {
		assert.Equal(t, snippet.LanguagePython, sn.Language())
		assert.Equal(t, "app/main.py", sn.FilePath())
		assert.Contains(t, sn.Content(), "import os", "snippets carry file imports")
	}

	stored, err := f.files.ForCommit(ctx, commit.ID())
	require.NoError(t, err)
	assert.Len(t, stored, 2, "unsupported files are recorded even when not sliced")

	results, err := f.keyword.Search(ctx, commit.RepoID(), "goodbye", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results, "extraction rebuilds the keyword index")
}

func TestExtractCommitEnqueuesFollowups(t *testing.T) {
	f := newExtractFixture(t, sourceAdapter(), true, true)
	commit := f.seedCommit(t, "https://example.com/repo.git")
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": commit.ID()}))

	counts, err := f.tasks.PendingCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[task.OperationSnippetEmbed])
	assert.Equal(t, int64(1), counts[task.OperationSnippetEnrich])
}

func TestExtractCommitSkipsFollowupsWhenUnconfigured(t *testing.T) {
	f := newExtractFixture(t, sourceAdapter(), false, false)
	commit := f.seedCommit(t, "https://example.com/repo.git")
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": commit.ID()}))

	count, err := f.tasks.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExtractCommitReplacesPreviousSnippets(t *testing.T) {
	adapter := sourceAdapter()
	f := newExtractFixture(t, adapter, false, false)
	commit := f.seedCommit(t, "https://example.com/repo.git")
	ctx := context.Background()

	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": commit.ID()}))

	// The file shrinks to a single definition; re-extraction must not leave
	// the old second snippet behind.
	adapter.contents["app/main.py"] = []byte("def hello(name):\n    return name\n")
	require.NoError(t, f.handler.Execute(ctx, map[string]any{"commit_id": commit.ID()}))

	snips, err := f.snippets.ForCommit(ctx, commit.ID())
	require.NoError(t, err)
	require.Len(t, snips, 1)

	results, err := f.keyword.Search(ctx, commit.RepoID(), "goodbye", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "stale content drops out of the keyword index")
}

func TestExtractCommitUnknownCommit(t *testing.T) {
	f := newExtractFixture(t, sourceAdapter(), false, false)
	err := f.handler.Execute(context.Background(), map[string]any{"commit_id": int64(999)})
	require.ErrorIs(t, err, database.ErrNotFound)
}
