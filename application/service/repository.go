package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/internal/database"
)

// RepositoryService manages the tracked repository lifecycle: registration,
// listing, sync scheduling and removal.
type RepositoryService struct {
	repos    repository.Store
	commits  repository.CommitStore
	snippets snippet.Store
	vectors  search.VectorStore
	keyword  search.KeywordIndex
	cloner   *git.RepositoryCloner
	prober   git.Adapter
	queue    *Queue
	logger   *slog.Logger
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(
	repos repository.Store,
	commits repository.CommitStore,
	snippets snippet.Store,
	vectors search.VectorStore,
	keyword search.KeywordIndex,
	cloner *git.RepositoryCloner,
	prober git.Adapter,
	queue *Queue,
	logger *slog.Logger,
) *RepositoryService {
	return &RepositoryService{
		repos:    repos,
		commits:  commits,
		snippets: snippets,
		vectors:  vectors,
		keyword:  keyword,
		cloner:   cloner,
		prober:   prober,
		queue:    queue,
		logger:   logger,
	}
}

// Track registers a remote for indexing and enqueues its first index run.
// Registration is idempotent: tracking an already-known remote re-enqueues
// the index task and returns the existing repository.
func (s *RepositoryService) Track(ctx context.Context, remoteURI string, tc repository.TrackingConfig) (repository.Repository, error) {
	repo, err := repository.NewRepository(remoteURI)
	if err != nil {
		return repository.Repository{}, err
	}

	existing, err := s.repos.GetBySanitizedURI(ctx, repo.SanitizedURI())
	switch {
	case err == nil:
		// Re-tracking refreshes the transport URI so new credentials take
		// effect on the next clone or fetch.
		repo = existing.WithRemoteURI(remoteURI)
	case database.IsNotFound(err):
		// The probe fails fast on unreachable or unauthorized remotes
		// before anything is persisted.
		if probeErr := s.prober.ProbeRemote(ctx, remoteURI); probeErr != nil {
			return repository.Repository{}, probeErr
		}
	default:
		return repository.Repository{}, err
	}

	if !tc.IsEmpty() {
		repo = repo.WithTrackingConfig(tc)
	}
	repo, err = s.repos.Save(ctx, repo)
	if err != nil {
		return repository.Repository{}, err
	}

	if err := s.enqueueIndex(ctx, repo.ID(), task.PriorityUserInitiated); err != nil {
		return repository.Repository{}, err
	}
	s.logger.Info("repository tracked",
		slog.Int64("repo_id", repo.ID()),
		slog.String("uri", repo.SanitizedURI()),
	)
	return repo, nil
}

// Sync re-enqueues the index task for an already-tracked repository.
func (s *RepositoryService) Sync(ctx context.Context, repoID int64) error {
	if _, err := s.repos.Get(ctx, repoID); err != nil {
		return err
	}
	return s.enqueueIndex(ctx, repoID, task.PriorityNormal)
}

// Get retrieves a repository by id.
func (s *RepositoryService) Get(ctx context.Context, id int64) (repository.Repository, error) {
	return s.repos.Get(ctx, id)
}

// List retrieves all tracked repositories.
func (s *RepositoryService) List(ctx context.Context) ([]repository.Repository, error) {
	return s.repos.Find(ctx, database.OrderAsc("id"))
}

// Commits retrieves a repository's scanned commits, newest first.
func (s *RepositoryService) Commits(ctx context.Context, repoID int64) ([]repository.Commit, error) {
	if _, err := s.repos.Get(ctx, repoID); err != nil {
		return nil, err
	}
	return s.commits.Find(ctx,
		database.Where("repo_id", repoID),
		database.OrderDesc("committed_at"),
	)
}

// Untrack removes the repository: its clone, its rows, its keyword index and
// any embeddings no other repository's snippets still reference.
func (s *RepositoryService) Untrack(ctx context.Context, repoID int64) error {
	repo, err := s.repos.Get(ctx, repoID)
	if err != nil {
		return err
	}

	orphaned, err := s.orphanedSHAs(ctx, repoID)
	if err != nil {
		return err
	}

	if err := s.repos.Delete(ctx, repoID); err != nil {
		return err
	}
	if err := s.keyword.Drop(ctx, repoID); err != nil {
		return err
	}
	if len(orphaned) > 0 {
		if err := s.vectors.DeleteBySHAs(ctx, orphaned); err != nil {
			return err
		}
	}
	if repo.HasWorkingCopy() {
		if err := s.cloner.Remove(ctx, repo); err != nil {
			s.logger.Warn("failed to remove working copy",
				slog.Int64("repo_id", repoID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.Info("repository untracked", slog.Int64("repo_id", repoID))
	return nil
}

// orphanedSHAs returns content-addresses used only by the given repository.
func (s *RepositoryService) orphanedSHAs(ctx context.Context, repoID int64) ([]string, error) {
	commits, err := s.commits.Find(ctx, database.Where("repo_id", repoID))
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	commitIDs := make([]int64, len(commits))
	ownCommits := make(map[int64]bool, len(commits))
	for i, c := range commits {
		commitIDs[i] = c.ID()
		ownCommits[c.ID()] = true
	}

	own, err := s.snippets.Find(ctx, database.WhereIn("commit_id", commitIDs))
	if err != nil {
		return nil, err
	}
	shas := make([]string, 0, len(own))
	seen := make(map[string]bool, len(own))
	for _, sn := range own {
		if !seen[sn.SHA()] {
			seen[sn.SHA()] = true
			shas = append(shas, sn.SHA())
		}
	}
	if len(shas) == 0 {
		return nil, nil
	}

	// Identical snippet content in another repository keeps its vectors.
	shared, err := s.snippets.BySHAs(ctx, shas)
	if err != nil {
		return nil, err
	}
	for _, sn := range shared {
		if !ownCommits[sn.CommitID()] {
			delete(seen, sn.SHA())
		}
	}

	orphaned := make([]string, 0, len(seen))
	for _, sha := range shas {
		if seen[sha] {
			orphaned = append(orphaned, sha)
		}
	}
	return orphaned, nil
}

func (s *RepositoryService) enqueueIndex(ctx context.Context, repoID int64, priority task.Priority) error {
	t := task.New(
		task.OperationRepositoryIndex,
		fmt.Sprintf("%d", repoID),
		priority,
		map[string]any{"repository_id": repoID},
	)
	return s.queue.Enqueue(ctx, t)
}
