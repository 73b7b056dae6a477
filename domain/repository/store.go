package repository

import (
	"context"

	"github.com/kodit-ai/kodit/internal/database"
)

// Store persists Repository aggregates.
type Store interface {
	Save(ctx context.Context, repo Repository) (Repository, error)
	Get(ctx context.Context, id int64) (Repository, error)
	GetBySanitizedURI(ctx context.Context, uri string) (Repository, error)
	Find(ctx context.Context, options ...database.Option) ([]Repository, error)
	// Delete removes the repository and cascades to commits, files,
	// snippets, embeddings and tasks.
	Delete(ctx context.Context, id int64) error
}

// CommitStore persists commits.
type CommitStore interface {
	Save(ctx context.Context, commit Commit) (Commit, error)
	GetBySHA(ctx context.Context, repoID int64, sha string) (Commit, error)
	Find(ctx context.Context, options ...database.Option) ([]Commit, error)
	Exists(ctx context.Context, repoID int64, sha string) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// RefStore persists branches and tags scanned from a repository.
type RefStore interface {
	ReplaceBranches(ctx context.Context, repoID int64, branches []Branch) error
	ReplaceTags(ctx context.Context, repoID int64, tags []Tag) error
	Branches(ctx context.Context, repoID int64) ([]Branch, error)
	Tags(ctx context.Context, repoID int64) ([]Tag, error)
}

// FileStore persists per-commit file snapshots.
type FileStore interface {
	ReplaceForCommit(ctx context.Context, commitID int64, files []File) error
	ForCommit(ctx context.Context, commitID int64) ([]File, error)
}
