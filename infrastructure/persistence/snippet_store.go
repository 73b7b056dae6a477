package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ snippet.Store = (*SnippetStore)(nil)

// SnippetStore persists snippets.
type SnippetStore struct {
	db     database.Database
	repo   database.Repository[snippet.Snippet, SnippetModel]
	mapper SnippetMapper
}

// NewSnippetStore creates a SnippetStore.
func NewSnippetStore(db database.Database) *SnippetStore {
	return &SnippetStore{
		db:   db,
		repo: database.NewRepository[snippet.Snippet, SnippetModel](db, SnippetMapper{}, "snippet"),
	}
}

// ReplaceForCommit atomically replaces the commit's snippet set and returns
// the inserted snippets with their row ids.
func (s *SnippetStore) ReplaceForCommit(ctx context.Context, commitID int64, snippets []snippet.Snippet) ([]snippet.Snippet, error) {
	var models []SnippetModel
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("commit_id = ?", commitID).Delete(&SnippetModel{}).Error; err != nil {
			return fmt.Errorf("delete snippets: %w", err)
		}
		if len(snippets) == 0 {
			return nil
		}
		models = make([]SnippetModel, len(snippets))
		for i, sn := range snippets {
			models[i] = s.mapper.ToModel(sn)
			models[i].ID = 0
			models[i].CommitID = commitID
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("insert snippets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	saved := make([]snippet.Snippet, len(models))
	for i, m := range models {
		saved[i] = s.mapper.ToDomain(m)
	}
	return saved, nil
}

// ForCommit retrieves the commit's snippets in extraction order.
func (s *SnippetStore) ForCommit(ctx context.Context, commitID int64) ([]snippet.Snippet, error) {
	return s.repo.Find(ctx, database.Where("commit_id", commitID), database.OrderAsc("id"))
}

// ByIDs retrieves snippets by row id.
func (s *SnippetStore) ByIDs(ctx context.Context, ids []int64) ([]snippet.Snippet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.Find(ctx, database.WhereIn("id", ids))
}

// BySHAs retrieves snippets by content-address.
func (s *SnippetStore) BySHAs(ctx context.Context, shas []string) ([]snippet.Snippet, error) {
	if len(shas) == 0 {
		return nil, nil
	}
	return s.repo.Find(ctx, database.WhereIn("content_sha", shas))
}

// Find retrieves snippets matching the options.
func (s *SnippetStore) Find(ctx context.Context, options ...database.Option) ([]snippet.Snippet, error) {
	return s.repo.Find(ctx, options...)
}

// SaveEnrichment stores the summary text for one snippet.
func (s *SnippetStore) SaveEnrichment(ctx context.Context, snippetID int64, text string) error {
	err := s.db.Session(ctx).
		Model(&SnippetModel{}).
		Where("id = ?", snippetID).
		Update("enrichment", text).Error
	if err != nil {
		return fmt.Errorf("save enrichment: %w", err)
	}
	return nil
}

// Count returns the number of snippets matching the options.
func (s *SnippetStore) Count(ctx context.Context, options ...database.Option) (int64, error) {
	return s.repo.Count(ctx, options...)
}
