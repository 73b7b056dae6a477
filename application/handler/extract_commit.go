package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/slicing"
	"github.com/kodit-ai/kodit/internal/database"
)

// ExtractCommit lists a commit's files, slices the supported ones into
// snippets, replaces the commit's snippet set, rebuilds the repository's
// keyword index and enqueues the embedding stages.
type ExtractCommit struct {
	repos            repository.Store
	commits          repository.CommitStore
	files            repository.FileStore
	snippets         snippet.Store
	scanner          *git.RepositoryScanner
	slicer           *slicing.Slicer
	keyword          search.KeywordIndex
	queue            *service.Queue
	trackers         *TrackerFactory
	embedConfigured  bool
	enrichConfigured bool
	logger           *slog.Logger
}

// NewExtractCommit creates an ExtractCommit handler. The embed and enrich
// flags gate which follow-up stages get enqueued.
func NewExtractCommit(
	repos repository.Store,
	commits repository.CommitStore,
	files repository.FileStore,
	snippets snippet.Store,
	scanner *git.RepositoryScanner,
	slicer *slicing.Slicer,
	keyword search.KeywordIndex,
	queue *service.Queue,
	trackers *TrackerFactory,
	embedConfigured bool,
	enrichConfigured bool,
	logger *slog.Logger,
) *ExtractCommit {
	return &ExtractCommit{
		repos:            repos,
		commits:          commits,
		files:            files,
		snippets:         snippets,
		scanner:          scanner,
		slicer:           slicer,
		keyword:          keyword,
		queue:            queue,
		trackers:         trackers,
		embedConfigured:  embedConfigured,
		enrichConfigured: enrichConfigured,
		logger:           logger,
	}
}

// Execute implements service.Handler.
func (h *ExtractCommit) Execute(ctx context.Context, payload map[string]any) error {
	commitID, err := commitIDFromPayload(payload)
	if err != nil {
		return err
	}
	commit, err := h.commitByID(ctx, commitID)
	if err != nil {
		return err
	}
	repo, err := h.repos.Get(ctx, commit.RepoID())
	if err != nil {
		return err
	}

	tracker := h.trackers.Tracker(task.OperationCommitExtract, task.TrackableCommit, commitID)

	files, err := h.scanner.Files(ctx, repo, commit)
	if err != nil {
		return err
	}
	tracker.SetTotal(ctx, len(files))

	snippets := make([]snippet.Snippet, 0, len(files))
	for i, file := range files {
		tracker.Advance(ctx, i+1, file.Path())

		language, err := snippet.DetectLanguage(file.Path())
		if err != nil {
			continue
		}
		source, err := h.scanner.FileContent(ctx, repo, commit.SHA(), file.Path())
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Path(), err)
		}
		result, err := h.slicer.Extract(ctx, source, language)
		if err != nil {
			return fmt.Errorf("slice %s: %w", file.Path(), err)
		}
		if result.Unparseable {
			h.logger.Debug("skipping unparseable file",
				slog.String("path", file.Path()),
				slog.String("sha", commit.ShortSHA()),
			)
			continue
		}
		for _, content := range result.Snippets {
			snippets = append(snippets, snippet.New(commitID, file.Path(), language, content))
		}
	}

	if err := h.files.ReplaceForCommit(ctx, commitID, files); err != nil {
		return err
	}
	saved, err := h.snippets.ReplaceForCommit(ctx, commitID, snippets)
	if err != nil {
		return err
	}

	if err := h.rebuildKeywordIndex(ctx, repo.ID()); err != nil {
		return err
	}
	if err := h.enqueueFollowups(ctx, repo.ID(), commitID); err != nil {
		return err
	}

	tracker.Complete(ctx)
	h.logger.Info("commit extracted",
		slog.String("sha", commit.ShortSHA()),
		slog.Int("files", len(files)),
		slog.Int("snippets", len(saved)),
	)
	return nil
}

func (h *ExtractCommit) commitByID(ctx context.Context, commitID int64) (repository.Commit, error) {
	commits, err := h.commits.Find(ctx, database.Where("id", commitID))
	if err != nil {
		return repository.Commit{}, err
	}
	if len(commits) == 0 {
		return repository.Commit{}, fmt.Errorf("commit %d: %w", commitID, database.ErrNotFound)
	}
	return commits[0], nil
}

// rebuildKeywordIndex rebuilds the repository's BM25 index from every
// snippet of every indexed commit, so stale extractions drop out.
func (h *ExtractCommit) rebuildKeywordIndex(ctx context.Context, repoID int64) error {
	commits, err := h.commits.Find(ctx, database.Where("repo_id", repoID))
	if err != nil {
		return err
	}
	commitIDs := make([]int64, len(commits))
	for i, c := range commits {
		commitIDs[i] = c.ID()
	}
	all, err := h.snippets.Find(ctx, database.WhereIn("commit_id", commitIDs))
	if err != nil {
		return err
	}

	docs := make([]search.Document, 0, len(all))
	for _, sn := range all {
		docs = append(docs, search.NewDocument(sn.ID(), sn.SHA(), sn.Content()))
	}
	return h.keyword.Rebuild(ctx, repoID, docs)
}

func (h *ExtractCommit) enqueueFollowups(ctx context.Context, repoID, commitID int64) error {
	target := strconv.FormatInt(commitID, 10)
	payload := map[string]any{"repository_id": repoID, "commit_id": commitID}

	var tasks []task.Task
	if h.embedConfigured {
		tasks = append(tasks, task.New(task.OperationSnippetEmbed, target, task.PriorityNormal, payload))
	}
	if h.enrichConfigured {
		tasks = append(tasks, task.New(task.OperationSnippetEnrich, target, task.PriorityBackground, payload))
	}
	return h.queue.EnqueueAll(ctx, tasks)
}
