package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ repository.CommitStore = (*CommitStore)(nil)

// CommitStore persists commits.
type CommitStore struct {
	db     database.Database
	repo   database.Repository[repository.Commit, CommitModel]
	mapper CommitMapper
}

// NewCommitStore creates a CommitStore.
func NewCommitStore(db database.Database) *CommitStore {
	return &CommitStore{
		db:   db,
		repo: database.NewRepository[repository.Commit, CommitModel](db, CommitMapper{}, "commit"),
	}
}

// Save upserts the commit by (repo, sha) and returns it with its id set.
func (s *CommitStore) Save(ctx context.Context, commit repository.Commit) (repository.Commit, error) {
	model := s.mapper.ToModel(commit)
	err := s.db.Session(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repo_id"}, {Name: "sha"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return repository.Commit{}, fmt.Errorf("save commit: %w", err)
	}
	if model.ID == 0 {
		// Conflict path: the row already existed, fetch its id.
		return s.GetBySHA(ctx, commit.RepoID(), commit.SHA())
	}
	return commit.WithID(model.ID), nil
}

// GetBySHA retrieves a commit by its repository and SHA.
func (s *CommitStore) GetBySHA(ctx context.Context, repoID int64, sha string) (repository.Commit, error) {
	return s.repo.FindOne(ctx, database.Where("repo_id", repoID), database.Where("sha", sha))
}

// Find retrieves commits matching the options.
func (s *CommitStore) Find(ctx context.Context, options ...database.Option) ([]repository.Commit, error) {
	return s.repo.Find(ctx, options...)
}

// Exists reports whether the commit has been scanned already.
func (s *CommitStore) Exists(ctx context.Context, repoID int64, sha string) (bool, error) {
	return s.repo.Exists(ctx, database.Where("repo_id", repoID), database.Where("sha", sha))
}

// Delete removes a commit row.
func (s *CommitStore) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteBy(ctx, database.Where("id", id))
}
