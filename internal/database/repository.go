package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Mapper converts between a domain type D and its persistence model E.
type Mapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides generic option-driven persistence operations. Stores
// embed or wrap one per entity and add entity-specific methods on top.
type Repository[D any, E any] struct {
	db     Database
	mapper Mapper[D, E]
	label  string
}

// NewRepository creates a Repository. The label names the entity in error
// messages.
func NewRepository[D any, E any](db Database, mapper Mapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{db: db, mapper: mapper, label: label}
}

// Find retrieves entities matching the options.
func (r Repository[D, E]) Find(ctx context.Context, options ...Option) ([]D, error) {
	var entities []E
	db := NewQuery(options...).Apply(r.db.Session(ctx).Model(new(E)))
	if result := db.Find(&entities); result.Error != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, result.Error)
	}

	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the options, ErrNotFound when
// none matches.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...Option) (D, error) {
	var entity E
	db := NewQuery(options...).Apply(r.db.Session(ctx))
	if result := db.First(&entity); result.Error != nil {
		var zero D
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	return r.mapper.ToDomain(entity), nil
}

// Exists reports whether any entity matches the options.
func (r Repository[D, E]) Exists(ctx context.Context, options ...Option) (bool, error) {
	count, err := r.Count(ctx, options...)
	return count > 0, err
}

// Count returns the number of matching entities.
func (r Repository[D, E]) Count(ctx context.Context, options ...Option) (int64, error) {
	var count int64
	db := NewQuery(options...).ApplyConditions(r.db.Session(ctx).Model(new(E)))
	if result := db.Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, result.Error)
	}
	return count, nil
}

// DeleteBy removes entities matching the options.
func (r Repository[D, E]) DeleteBy(ctx context.Context, options ...Option) error {
	db := NewQuery(options...).ApplyConditions(r.db.Session(ctx))
	if result := db.Delete(new(E)); result.Error != nil {
		return fmt.Errorf("delete %s: %w", r.label, result.Error)
	}
	return nil
}

// DB exposes the session for store-specific queries.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Mapper returns the entity mapper.
func (r Repository[D, E]) Mapper() Mapper[D, E] {
	return r.mapper
}
