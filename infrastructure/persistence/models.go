// Package persistence implements the domain stores on GORM.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/kodit-ai/kodit/infrastructure/search"
	"github.com/kodit-ai/kodit/internal/database"
)

// RepositoryModel is the repositories table row.
type RepositoryModel struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	RemoteURI      string     `gorm:"column:remote_uri;size:1024"`
	SanitizedURI   string     `gorm:"column:sanitized_uri;size:1024;not null;uniqueIndex"`
	ClonePath      string     `gorm:"column:clone_path;size:1024"`
	CloneURI       string     `gorm:"column:clone_uri;size:1024"`
	TrackingBranch string     `gorm:"column:tracking_branch;size:256"`
	TrackLatestTag bool       `gorm:"column:track_latest_tag;not null;default:false"`
	LastScannedAt  *time.Time `gorm:"column:last_scanned_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null"`
}

// TableName implements schema.Tabler.
func (RepositoryModel) TableName() string { return "repositories" }

// CommitModel is the commits table row, unique per (repo, sha).
type CommitModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepoID      int64     `gorm:"column:repo_id;not null;uniqueIndex:idx_commits_repo_sha;index"`
	SHA         string    `gorm:"column:sha;size:64;not null;uniqueIndex:idx_commits_repo_sha"`
	ParentSHA   string    `gorm:"column:parent_sha;size:64"`
	Author      string    `gorm:"column:author;size:512"`
	Message     string    `gorm:"column:message;type:text"`
	CommittedAt time.Time `gorm:"column:committed_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// TableName implements schema.Tabler.
func (CommitModel) TableName() string { return "commits" }

// BranchModel is the branches table row.
type BranchModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RepoID    int64  `gorm:"column:repo_id;not null;uniqueIndex:idx_branches_repo_name"`
	Name      string `gorm:"column:name;size:256;not null;uniqueIndex:idx_branches_repo_name"`
	TargetSHA string `gorm:"column:target_sha;size:64;not null"`
	IsDefault bool   `gorm:"column:is_default;not null;default:false"`
}

// TableName implements schema.Tabler.
func (BranchModel) TableName() string { return "branches" }

// TagModel is the tags table row.
type TagModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RepoID    int64  `gorm:"column:repo_id;not null;uniqueIndex:idx_tags_repo_name"`
	Name      string `gorm:"column:name;size:256;not null;uniqueIndex:idx_tags_repo_name"`
	TargetSHA string `gorm:"column:target_sha;size:64;not null"`
}

// TableName implements schema.Tabler.
func (TagModel) TableName() string { return "tags" }

// FileModel is the files table row, one per file per commit snapshot.
type FileModel struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	CommitID int64  `gorm:"column:commit_id;not null;index"`
	Path     string `gorm:"column:path;size:1024;not null"`
	BlobSHA  string `gorm:"column:blob_sha;size:64;not null"`
	MimeType string `gorm:"column:mime_type;size:128"`
	Size     int64  `gorm:"column:size;not null"`
}

// TableName implements schema.Tabler.
func (FileModel) TableName() string { return "files" }

// SnippetModel is the snippets table row.
type SnippetModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ContentSHA string    `gorm:"column:content_sha;size:64;not null;index"`
	CommitID   int64     `gorm:"column:commit_id;not null;index"`
	FilePath   string    `gorm:"column:file_path;size:1024;not null"`
	Language   string    `gorm:"column:language;size:32;not null"`
	Content    string    `gorm:"column:content;type:text;not null"`
	Enrichment string    `gorm:"column:enrichment;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

// TableName implements schema.Tabler.
func (SnippetModel) TableName() string { return "snippets" }

// TaskModel is the durable queue row. A row's existence means pending.
type TaskModel struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey    string     `gorm:"column:dedup_key;size:512;not null;uniqueIndex"`
	Type        string     `gorm:"column:type;size:64;not null;index"`
	Priority    int        `gorm:"column:priority;not null"`
	Payload     string     `gorm:"column:payload;type:text"`
	RetryCount  int        `gorm:"column:retry_count;not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

// TableName implements schema.Tabler.
func (TaskModel) TableName() string { return "tasks" }

// TaskStatusModel is one persisted progress step.
type TaskStatusModel struct {
	ID            string    `gorm:"column:id;primaryKey;size:256"`
	State         string    `gorm:"column:state;size:32;not null"`
	Operation     string    `gorm:"column:operation;size:64;not null"`
	Step          string    `gorm:"column:step;size:128"`
	Message       string    `gorm:"column:message;type:text"`
	Total         int       `gorm:"column:total;not null;default:0"`
	Current       int       `gorm:"column:current;not null;default:0"`
	Error         string    `gorm:"column:error;type:text"`
	TrackableType string    `gorm:"column:trackable_type;size:32;index:idx_statuses_trackable"`
	TrackableID   int64     `gorm:"column:trackable_id;index:idx_statuses_trackable"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName implements schema.Tabler.
func (TaskStatusModel) TableName() string { return "task_statuses" }

// Migrate creates or updates every table, including the embeddings table
// owned by the search store.
func Migrate(ctx context.Context, db database.Database) error {
	err := db.Session(ctx).AutoMigrate(
		&RepositoryModel{},
		&CommitModel{},
		&BranchModel{},
		&TagModel{},
		&FileModel{},
		&SnippetModel{},
		&TaskModel{},
		&TaskStatusModel{},
		&search.EmbeddingModel{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
