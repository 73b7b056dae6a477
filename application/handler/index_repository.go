package handler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/git"
)

// DefaultHistoryDepth indexes only the tracked head by default.
const DefaultHistoryDepth = 1

// IndexRepository acquires a repository's working copy, checks out the
// tracked ref, records the scanned refs and head commit, and enqueues a
// commit.extract task per unindexed commit.
type IndexRepository struct {
	repos        repository.Store
	commits      repository.CommitStore
	refs         repository.RefStore
	cloner       *git.RepositoryCloner
	scanner      *git.RepositoryScanner
	queue        *service.Queue
	trackers     *TrackerFactory
	historyDepth int
	logger       *slog.Logger
}

// NewIndexRepository creates an IndexRepository handler.
func NewIndexRepository(
	repos repository.Store,
	commits repository.CommitStore,
	refs repository.RefStore,
	cloner *git.RepositoryCloner,
	scanner *git.RepositoryScanner,
	queue *service.Queue,
	trackers *TrackerFactory,
	logger *slog.Logger,
) *IndexRepository {
	return &IndexRepository{
		repos:        repos,
		commits:      commits,
		refs:         refs,
		cloner:       cloner,
		scanner:      scanner,
		queue:        queue,
		trackers:     trackers,
		historyDepth: DefaultHistoryDepth,
		logger:       logger,
	}
}

// WithHistoryDepth sets how many commits of history to index, newest first.
// Zero indexes the full history.
func (h *IndexRepository) WithHistoryDepth(depth int) *IndexRepository {
	if depth >= 0 {
		h.historyDepth = depth
	}
	return h
}

// Execute implements service.Handler.
func (h *IndexRepository) Execute(ctx context.Context, payload map[string]any) error {
	repoID, err := repositoryIDFromPayload(payload)
	if err != nil {
		return err
	}
	repo, err := h.repos.Get(ctx, repoID)
	if err != nil {
		return err
	}

	tracker := h.trackers.Tracker(task.OperationRepositoryIndex, task.TrackableRepository, repoID)
	tracker.SetTotal(ctx, 4)

	tracker.Advance(ctx, 1, "acquiring working copy")
	wc, err := h.cloner.Ensure(ctx, repo)
	if err != nil {
		return err
	}
	if repo.WorkingCopy() != wc {
		repo = repo.WithWorkingCopy(wc)
		if repo, err = h.repos.Save(ctx, repo); err != nil {
			return err
		}
	}

	tracker.Advance(ctx, 2, "checking out tracked ref")
	headSHA, err := h.cloner.SyncTarget(ctx, repo)
	if err != nil {
		return err
	}

	tracker.Advance(ctx, 3, "scanning refs")
	if err := h.scanRefs(ctx, repo); err != nil {
		return err
	}

	tracker.Advance(ctx, 4, "enqueueing commit extraction")
	enqueued, err := h.enqueueUnindexed(ctx, repo)
	if err != nil {
		return err
	}

	repo = repo.Scanned(time.Now().UTC())
	if _, err := h.repos.Save(ctx, repo); err != nil {
		return err
	}

	tracker.Complete(ctx)
	h.logger.Info("repository indexed",
		slog.Int64("repo_id", repoID),
		slog.String("head", headSHA),
		slog.Int("new_commits", enqueued),
	)
	return nil
}

func (h *IndexRepository) scanRefs(ctx context.Context, repo repository.Repository) error {
	branches, err := h.scanner.Branches(ctx, repo)
	if err != nil {
		return err
	}
	if err := h.refs.ReplaceBranches(ctx, repo.ID(), branches); err != nil {
		return err
	}

	tags, err := h.scanner.Tags(ctx, repo)
	if err != nil {
		return err
	}
	return h.refs.ReplaceTags(ctx, repo.ID(), tags)
}

// enqueueUnindexed walks the checked-out history newest first and enqueues
// extraction for commits not yet in the store. Older commits get lower
// priority so the head is always extracted first.
func (h *IndexRepository) enqueueUnindexed(ctx context.Context, repo repository.Repository) (int, error) {
	history, err := h.scanner.History(ctx, repo, "", h.historyDepth)
	if err != nil {
		return 0, err
	}

	tasks := make([]task.Task, 0, len(history))
	for i, commit := range history {
		exists, err := h.commits.Exists(ctx, repo.ID(), commit.SHA())
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		saved, err := h.commits.Save(ctx, commit)
		if err != nil {
			return 0, err
		}
		tasks = append(tasks, task.New(
			task.OperationCommitExtract,
			strconv.FormatInt(saved.ID(), 10),
			task.Priority(int(task.PriorityNormal)-i),
			map[string]any{"repository_id": repo.ID(), "commit_id": saved.ID()},
		))
	}
	if err := h.queue.EnqueueAll(ctx, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
