package persistence

import (
	"encoding/json"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
)

// RepositoryMapper converts between repository.Repository and RepositoryModel.
type RepositoryMapper struct{}

// ToDomain converts a model to the domain aggregate.
func (RepositoryMapper) ToDomain(m RepositoryModel) repository.Repository {
	var tc repository.TrackingConfig
	switch {
	case m.TrackLatestTag:
		tc = repository.TrackLatestVersionTag()
	case m.TrackingBranch != "":
		tc = repository.TrackBranch(m.TrackingBranch)
	}
	return repository.ReconstructRepository(
		m.ID,
		m.RemoteURI,
		m.SanitizedURI,
		repository.NewWorkingCopy(m.ClonePath, m.CloneURI),
		tc,
		m.LastScannedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// ToModel converts the domain aggregate to a model.
func (RepositoryMapper) ToModel(r repository.Repository) RepositoryModel {
	return RepositoryModel{
		ID:             r.ID(),
		RemoteURI:      r.RemoteURI(),
		SanitizedURI:   r.SanitizedURI(),
		ClonePath:      r.WorkingCopy().Path(),
		CloneURI:       r.WorkingCopy().URI(),
		TrackingBranch: r.TrackingConfig().Branch(),
		TrackLatestTag: r.TrackingConfig().IsLatestVersionTag(),
		LastScannedAt:  r.LastScannedAt(),
		CreatedAt:      r.CreatedAt(),
		UpdatedAt:      r.UpdatedAt(),
	}
}

// CommitMapper converts between repository.Commit and CommitModel.
type CommitMapper struct{}

// ToDomain converts a model to the domain value.
func (CommitMapper) ToDomain(m CommitModel) repository.Commit {
	return repository.ReconstructCommit(
		m.ID,
		m.RepoID,
		m.SHA,
		m.ParentSHA,
		repository.ParseAuthor(m.Author),
		m.Message,
		m.CommittedAt,
		m.CreatedAt,
	)
}

// ToModel converts the domain value to a model.
func (CommitMapper) ToModel(c repository.Commit) CommitModel {
	return CommitModel{
		ID:          c.ID(),
		RepoID:      c.RepoID(),
		SHA:         c.SHA(),
		ParentSHA:   c.ParentSHA(),
		Author:      c.Author().String(),
		Message:     c.Message(),
		CommittedAt: c.CommittedAt(),
		CreatedAt:   c.CreatedAt(),
	}
}

// BranchMapper converts between repository.Branch and BranchModel.
type BranchMapper struct{}

// ToDomain converts a model to the domain value.
func (BranchMapper) ToDomain(m BranchModel) repository.Branch {
	return repository.ReconstructBranch(m.ID, m.RepoID, m.Name, m.TargetSHA, m.IsDefault)
}

// ToModel converts the domain value to a model.
func (BranchMapper) ToModel(b repository.Branch) BranchModel {
	return BranchModel{
		ID:        b.ID(),
		RepoID:    b.RepoID(),
		Name:      b.Name(),
		TargetSHA: b.TargetSHA(),
		IsDefault: b.IsDefault(),
	}
}

// TagMapper converts between repository.Tag and TagModel.
type TagMapper struct{}

// ToDomain converts a model to the domain value.
func (TagMapper) ToDomain(m TagModel) repository.Tag {
	return repository.ReconstructTag(m.ID, m.RepoID, m.Name, m.TargetSHA)
}

// ToModel converts the domain value to a model.
func (TagMapper) ToModel(t repository.Tag) TagModel {
	return TagModel{ID: t.ID(), RepoID: t.RepoID(), Name: t.Name(), TargetSHA: t.TargetSHA()}
}

// FileMapper converts between repository.File and FileModel.
type FileMapper struct{}

// ToDomain converts a model to the domain value.
func (FileMapper) ToDomain(m FileModel) repository.File {
	return repository.ReconstructFile(m.ID, m.CommitID, m.Path, m.BlobSHA, m.MimeType, m.Size)
}

// ToModel converts the domain value to a model.
func (FileMapper) ToModel(f repository.File) FileModel {
	return FileModel{
		ID:       f.ID(),
		CommitID: f.CommitID(),
		Path:     f.Path(),
		BlobSHA:  f.BlobSHA(),
		MimeType: f.MimeType(),
		Size:     f.Size(),
	}
}

// SnippetMapper converts between snippet.Snippet and SnippetModel.
type SnippetMapper struct{}

// ToDomain converts a model to the domain value.
func (SnippetMapper) ToDomain(m SnippetModel) snippet.Snippet {
	return snippet.Reconstruct(
		m.ID,
		m.ContentSHA,
		m.CommitID,
		m.FilePath,
		snippet.Language(m.Language),
		m.Content,
		m.Enrichment,
		m.CreatedAt,
	)
}

// ToModel converts the domain value to a model.
func (SnippetMapper) ToModel(s snippet.Snippet) SnippetModel {
	return SnippetModel{
		ID:         s.ID(),
		ContentSHA: s.SHA(),
		CommitID:   s.CommitID(),
		FilePath:   s.FilePath(),
		Language:   s.Language().String(),
		Content:    s.Content(),
		Enrichment: s.Enrichment(),
		CreatedAt:  s.CreatedAt(),
	}
}

// TaskMapper converts between task.Task and TaskModel. The payload is
// serialised as JSON; rows with unreadable payloads map to empty payloads.
type TaskMapper struct{}

// ToDomain converts a model to the domain value.
func (TaskMapper) ToDomain(m TaskModel) task.Task {
	var payload map[string]any
	if m.Payload != "" {
		_ = json.Unmarshal([]byte(m.Payload), &payload)
	}
	return task.Reconstruct(
		m.ID,
		m.DedupKey,
		task.Operation(m.Type),
		task.Priority(m.Priority),
		payload,
		m.RetryCount,
		m.NextRetryAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// ToModel converts the domain value to a model.
func (TaskMapper) ToModel(t task.Task) TaskModel {
	payload, err := t.PayloadJSON()
	if err != nil {
		payload = []byte("{}")
	}
	return TaskModel{
		ID:          t.ID(),
		DedupKey:    t.DedupKey(),
		Type:        t.Operation().String(),
		Priority:    int(t.Priority()),
		Payload:     string(payload),
		RetryCount:  t.RetryCount(),
		NextRetryAt: t.NextRetryAt(),
		CreatedAt:   t.CreatedAt(),
		UpdatedAt:   t.UpdatedAt(),
	}
}

// StatusMapper converts between task.Status and TaskStatusModel.
type StatusMapper struct{}

// ToDomain converts a model to the domain value. Parent links are not
// persisted; the tree shape is recoverable from the step ids.
func (StatusMapper) ToDomain(m TaskStatusModel) task.Status {
	return task.ReconstructStatus(
		m.ID,
		task.State(m.State),
		task.Operation(m.Operation),
		m.Step,
		m.Message,
		m.Total,
		m.Current,
		m.Error,
		task.TrackableType(m.TrackableType),
		m.TrackableID,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

// ToModel converts the domain value to a model.
func (StatusMapper) ToModel(s task.Status) TaskStatusModel {
	return TaskStatusModel{
		ID:            s.ID(),
		State:         string(s.State()),
		Operation:     s.Operation().String(),
		Step:          s.Step(),
		Message:       s.Message(),
		Total:         s.Total(),
		Current:       s.Current(),
		Error:         s.Error(),
		TrackableType: string(s.TrackableType()),
		TrackableID:   s.TrackableID(),
		CreatedAt:     s.CreatedAt(),
		UpdatedAt:     s.UpdatedAt(),
	}
}
