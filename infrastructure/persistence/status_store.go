package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/tracking"
	"github.com/kodit-ai/kodit/internal/database"
)

var _ tracking.StatusWriter = (*StatusStore)(nil)

// StatusStore persists progress steps. Step ids are stable across updates,
// so each save upserts the row in place.
type StatusStore struct {
	db     database.Database
	mapper StatusMapper
}

// NewStatusStore creates a StatusStore.
func NewStatusStore(db database.Database) *StatusStore {
	return &StatusStore{db: db}
}

// SaveStatus upserts one progress step by its id.
func (s *StatusStore) SaveStatus(ctx context.Context, status task.Status) error {
	model := s.mapper.ToModel(status)
	err := s.db.Session(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state", "message", "total", "current", "error", "updated_at",
			}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// ByTrackable retrieves all steps recorded for one entity, oldest first.
func (s *StatusStore) ByTrackable(ctx context.Context, trackableType task.TrackableType, trackableID int64) ([]task.Status, error) {
	var models []TaskStatusModel
	err := s.db.Session(ctx).
		Where("trackable_type = ? AND trackable_id = ?", string(trackableType), trackableID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find statuses: %w", err)
	}

	statuses := make([]task.Status, len(models))
	for i, m := range models {
		statuses[i] = s.mapper.ToDomain(m)
	}
	return statuses, nil
}

// DeleteByTrackable removes all steps recorded for one entity.
func (s *StatusStore) DeleteByTrackable(ctx context.Context, trackableType task.TrackableType, trackableID int64) error {
	err := s.db.Session(ctx).
		Where("trackable_type = ? AND trackable_id = ?", string(trackableType), trackableID).
		Delete(&TaskStatusModel{}).Error
	if err != nil {
		return fmt.Errorf("delete statuses: %w", err)
	}
	return nil
}
