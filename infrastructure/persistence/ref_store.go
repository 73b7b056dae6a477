package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ repository.RefStore = (*RefStore)(nil)

// RefStore persists scanned branches and tags. Each scan replaces the
// repository's previous set wholesale.
type RefStore struct {
	db           database.Database
	branchMapper BranchMapper
	tagMapper    TagMapper
}

// NewRefStore creates a RefStore.
func NewRefStore(db database.Database) *RefStore {
	return &RefStore{db: db}
}

// ReplaceBranches swaps the repository's branch set in one transaction.
func (s *RefStore) ReplaceBranches(ctx context.Context, repoID int64, branches []repository.Branch) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("repo_id = ?", repoID).Delete(&BranchModel{}).Error; err != nil {
			return fmt.Errorf("delete branches: %w", err)
		}
		if len(branches) == 0 {
			return nil
		}
		models := make([]BranchModel, len(branches))
		for i, b := range branches {
			models[i] = s.branchMapper.ToModel(b)
			models[i].ID = 0
			models[i].RepoID = repoID
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("insert branches: %w", err)
		}
		return nil
	})
}

// ReplaceTags swaps the repository's tag set in one transaction.
func (s *RefStore) ReplaceTags(ctx context.Context, repoID int64, tags []repository.Tag) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("repo_id = ?", repoID).Delete(&TagModel{}).Error; err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		if len(tags) == 0 {
			return nil
		}
		models := make([]TagModel, len(tags))
		for i, t := range tags {
			models[i] = s.tagMapper.ToModel(t)
			models[i].ID = 0
			models[i].RepoID = repoID
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("insert tags: %w", err)
		}
		return nil
	})
}

// Branches retrieves the repository's branches by name.
func (s *RefStore) Branches(ctx context.Context, repoID int64) ([]repository.Branch, error) {
	var models []BranchModel
	err := s.db.Session(ctx).Where("repo_id = ?", repoID).Order("name ASC").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find branches: %w", err)
	}
	branches := make([]repository.Branch, len(models))
	for i, m := range models {
		branches[i] = s.branchMapper.ToDomain(m)
	}
	return branches, nil
}

// Tags retrieves the repository's tags by name.
func (s *RefStore) Tags(ctx context.Context, repoID int64) ([]repository.Tag, error) {
	var models []TagModel
	err := s.db.Session(ctx).Where("repo_id = ?", repoID).Order("name ASC").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	tags := make([]repository.Tag, len(models))
	for i, m := range models {
		tags[i] = s.tagMapper.ToDomain(m)
	}
	return tags, nil
}
