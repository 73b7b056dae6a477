package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/internal/database"
)

// TaskStore persists the durable queue.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
	now    func() time.Time
}

// NewTaskStore creates a TaskStore.
func NewTaskStore(db database.Database) *TaskStore {
	return &TaskStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Save upserts the task by dedup key. A re-enqueue of a pending task
// refreshes its priority and payload instead of creating a duplicate.
func (s *TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.mapper.ToModel(t)
	now := s.now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	err := s.db.Session(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"priority", "payload", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	return s.mapper.ToDomain(model), nil
}

// SaveBulk upserts tasks by dedup key.
func (s *TaskStore) SaveBulk(ctx context.Context, tasks []task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	now := s.now()
	models := make([]TaskModel, len(tasks))
	for i, t := range tasks {
		models[i] = s.mapper.ToModel(t)
		if models[i].CreatedAt.IsZero() {
			models[i].CreatedAt = now
		}
		models[i].UpdatedAt = now
	}
	err := s.db.Session(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"priority", "payload", "updated_at"}),
		}).
		Create(&models).Error
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// Dequeue claims the next eligible task by deleting its row inside a
// transaction: highest priority first, oldest first within a priority,
// skipping rows whose retry time has not arrived. Returns false when the
// queue is empty.
func (s *TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for {
			model = TaskModel{}
			result := tx.
				Where("next_retry_at IS NULL OR next_retry_at <= ?", s.now()).
				Order("priority DESC, created_at ASC").
				First(&model)
			if result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					model = TaskModel{}
					return nil
				}
				return result.Error
			}

			del := tx.Delete(&TaskModel{}, model.ID)
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected > 0 {
				return nil
			}
			// Another worker deleted the row between read and delete; the
			// claim goes to them, take the next candidate.
		}
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}
	if model.ID == 0 {
		return task.Task{}, false, nil
	}
	return s.mapper.ToDomain(model), true, nil
}

// PendingCounts returns the number of pending tasks per operation.
func (s *TaskStore) PendingCounts(ctx context.Context) (map[task.Operation]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := s.db.Session(ctx).
		Model(&TaskModel{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count pending tasks: %w", err)
	}

	counts := make(map[task.Operation]int64, len(rows))
	for _, row := range rows {
		counts[task.Operation(row.Type)] = row.Count
	}
	return counts, nil
}

// Count returns the number of pending tasks matching the options.
func (s *TaskStore) Count(ctx context.Context, options ...database.Option) (int64, error) {
	var count int64
	db := database.NewQuery(options...).ApplyConditions(s.db.Session(ctx).Model(&TaskModel{}))
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// Find retrieves pending tasks matching the options, queue-ordered.
func (s *TaskStore) Find(ctx context.Context, options ...database.Option) ([]task.Task, error) {
	var models []TaskModel
	db := database.NewQuery(options...).Apply(s.db.Session(ctx).Model(&TaskModel{}))
	if err := db.Order("priority DESC, created_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	tasks := make([]task.Task, len(models))
	for i, m := range models {
		tasks[i] = s.mapper.ToDomain(m)
	}
	return tasks, nil
}
