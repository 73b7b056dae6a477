package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ repository.FileStore = (*FileStore)(nil)

// FileStore persists per-commit file snapshots.
type FileStore struct {
	db     database.Database
	mapper FileMapper
}

// NewFileStore creates a FileStore.
func NewFileStore(db database.Database) *FileStore {
	return &FileStore{db: db}
}

// ReplaceForCommit swaps the commit's file snapshot in one transaction.
func (s *FileStore) ReplaceForCommit(ctx context.Context, commitID int64, files []repository.File) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("commit_id = ?", commitID).Delete(&FileModel{}).Error; err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
		if len(files) == 0 {
			return nil
		}
		models := make([]FileModel, len(files))
		for i, f := range files {
			models[i] = s.mapper.ToModel(f)
			models[i].ID = 0
			models[i].CommitID = commitID
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("insert files: %w", err)
		}
		return nil
	})
}

// ForCommit retrieves the commit's files ordered by path.
func (s *FileStore) ForCommit(ctx context.Context, commitID int64) ([]repository.File, error) {
	var models []FileModel
	err := s.db.Session(ctx).Where("commit_id = ?", commitID).Order("path ASC").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}
	files := make([]repository.File, len(models))
	for i, m := range models {
		files[i] = s.mapper.ToDomain(m)
	}
	return files, nil
}
