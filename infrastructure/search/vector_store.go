package search

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm/clause"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/internal/database"
)

// Float64Slice stores a vector as JSON so the same schema works on SQLite
// and Postgres.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// EmbeddingModel is the embeddings table row, keyed (sha, kind) so identical
// snippet content across commits shares one vector.
type EmbeddingModel struct {
	ID     int64        `gorm:"column:id;primaryKey;autoIncrement"`
	SHA    string       `gorm:"column:sha;size:64;not null;uniqueIndex:idx_embeddings_sha_kind"`
	Kind   string       `gorm:"column:kind;size:16;not null;uniqueIndex:idx_embeddings_sha_kind"`
	Vector Float64Slice `gorm:"column:vector;type:json;not null"`
}

// TableName implements schema.Tabler.
func (EmbeddingModel) TableName() string { return "embeddings" }

var _ search.VectorStore = (*VectorStore)(nil)

// VectorStore persists embeddings in the database and answers k-NN queries
// by loading candidate vectors and ranking by cosine similarity.
type VectorStore struct {
	db database.Database
}

// NewVectorStore creates a VectorStore.
func NewVectorStore(db database.Database) *VectorStore {
	return &VectorStore{db: db}
}

// Put upserts embeddings by (sha, kind).
func (s *VectorStore) Put(ctx context.Context, embeddings []search.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	models := make([]EmbeddingModel, 0, len(embeddings))
	for _, e := range embeddings {
		models = append(models, EmbeddingModel{
			SHA:    e.SHA(),
			Kind:   string(e.Kind()),
			Vector: Float64Slice(e.Vector()),
		})
	}

	err := s.db.Session(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sha"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"vector"}),
		}).
		Create(&models).Error
	if err != nil {
		return fmt.Errorf("put embeddings: %w", err)
	}
	return nil
}

// ExistingSHAs filters shas down to those already embedded for the kind.
func (s *VectorStore) ExistingSHAs(ctx context.Context, kind search.Kind, shas []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(shas))
	if len(shas) == 0 {
		return existing, nil
	}

	var found []string
	err := s.db.Session(ctx).
		Model(&EmbeddingModel{}).
		Where("kind = ?", string(kind)).
		Where("sha IN ?", shas).
		Pluck("sha", &found).Error
	if err != nil {
		return nil, fmt.Errorf("check existing embeddings: %w", err)
	}

	for _, sha := range found {
		existing[sha] = true
	}
	return existing, nil
}

// TopK loads candidate vectors for the kind, optionally restricted to the
// given shas, and returns the k nearest by cosine similarity.
func (s *VectorStore) TopK(ctx context.Context, kind search.Kind, query []float64, k int, restrict []string) ([]search.SemanticResult, error) {
	if len(query) == 0 || k <= 0 {
		return nil, nil
	}

	tx := s.db.Session(ctx).Model(&EmbeddingModel{}).Where("kind = ?", string(kind))
	if len(restrict) > 0 {
		tx = tx.Where("sha IN ?", restrict)
	}

	var models []EmbeddingModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	results := make([]search.SemanticResult, 0, len(models))
	for _, m := range models {
		if len(m.Vector) == 0 {
			continue
		}
		results = append(results, search.NewSemanticResult(m.SHA, CosineSimilarity(query, m.Vector)))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity() > results[j].Similarity()
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// DeleteBySHAs removes all kinds of embeddings for the given shas.
func (s *VectorStore) DeleteBySHAs(ctx context.Context, shas []string) error {
	if len(shas) == 0 {
		return nil
	}
	err := s.db.Session(ctx).
		Where("sha IN ?", shas).
		Delete(&EmbeddingModel{}).Error
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}
