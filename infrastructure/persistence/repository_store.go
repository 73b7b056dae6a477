package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ repository.Store = (*RepositoryStore)(nil)

// RepositoryStore persists Repository aggregates.
type RepositoryStore struct {
	db     database.Database
	repo   database.Repository[repository.Repository, RepositoryModel]
	mapper RepositoryMapper
}

// NewRepositoryStore creates a RepositoryStore.
func NewRepositoryStore(db database.Database) *RepositoryStore {
	return &RepositoryStore{
		db:   db,
		repo: database.NewRepository[repository.Repository, RepositoryModel](db, RepositoryMapper{}, "repository"),
	}
}

// Save inserts or updates the repository and returns it with its id set.
func (s *RepositoryStore) Save(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	model := s.mapper.ToModel(repo)
	if err := s.db.Session(ctx).Save(&model).Error; err != nil {
		return repository.Repository{}, fmt.Errorf("save repository: %w", err)
	}
	return repo.WithID(model.ID), nil
}

// Get retrieves a repository by id.
func (s *RepositoryStore) Get(ctx context.Context, id int64) (repository.Repository, error) {
	return s.repo.FindOne(ctx, database.Where("id", id))
}

// GetBySanitizedURI retrieves a repository by its identity URI.
func (s *RepositoryStore) GetBySanitizedURI(ctx context.Context, uri string) (repository.Repository, error) {
	return s.repo.FindOne(ctx, database.Where("sanitized_uri", uri))
}

// Find retrieves repositories matching the options.
func (s *RepositoryStore) Find(ctx context.Context, options ...database.Option) ([]repository.Repository, error) {
	return s.repo.Find(ctx, options...)
}

// Delete removes the repository and everything hanging off it: commits,
// files, snippets and statuses. Embedding rows are shared across commits by
// content address, so the caller removes them via the vector store once the
// orphaned shas are known.
func (s *RepositoryStore) Delete(ctx context.Context, id int64) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var commitIDs []int64
		if err := tx.Model(&CommitModel{}).Where("repo_id = ?", id).Pluck("id", &commitIDs).Error; err != nil {
			return fmt.Errorf("list commits: %w", err)
		}

		if len(commitIDs) > 0 {
			if err := tx.Where("commit_id IN ?", commitIDs).Delete(&SnippetModel{}).Error; err != nil {
				return fmt.Errorf("delete snippets: %w", err)
			}
			if err := tx.Where("commit_id IN ?", commitIDs).Delete(&FileModel{}).Error; err != nil {
				return fmt.Errorf("delete files: %w", err)
			}
		}
		if err := tx.Where("repo_id = ?", id).Delete(&CommitModel{}).Error; err != nil {
			return fmt.Errorf("delete commits: %w", err)
		}
		if err := tx.Where("repo_id = ?", id).Delete(&BranchModel{}).Error; err != nil {
			return fmt.Errorf("delete branches: %w", err)
		}
		if err := tx.Where("repo_id = ?", id).Delete(&TagModel{}).Error; err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		if err := tx.Where("trackable_type = ? AND trackable_id = ?", "repository", id).
			Delete(&TaskStatusModel{}).Error; err != nil {
			return fmt.Errorf("delete statuses: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&RepositoryModel{}).Error; err != nil {
			return fmt.Errorf("delete repository: %w", err)
		}
		return nil
	})
}
