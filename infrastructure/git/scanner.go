package git

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/repository"
)

// RepositoryScanner reads commits, refs and file listings from a working
// copy and converts them into domain entities. It never mutates the clone.
type RepositoryScanner struct {
	adapter Adapter
	logger  *slog.Logger
}

// NewRepositoryScanner creates a RepositoryScanner.
func NewRepositoryScanner(adapter Adapter, logger *slog.Logger) *RepositoryScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryScanner{adapter: adapter, logger: logger}
}

// Commit reads one commit's metadata.
func (s *RepositoryScanner) Commit(ctx context.Context, repo repository.Repository, sha string) (repository.Commit, error) {
	info, err := s.adapter.CommitDetails(ctx, repo.WorkingCopy().Path(), sha)
	if err != nil {
		return repository.Commit{}, fmt.Errorf("scan commit: %w", err)
	}
	return commitFromInfo(info, repo.ID()), nil
}

// History walks the tracked branch newest first, at most limit commits
// (zero for all).
func (s *RepositoryScanner) History(ctx context.Context, repo repository.Repository, branch string, limit int) ([]repository.Commit, error) {
	infos, err := s.adapter.ListCommits(ctx, repo.WorkingCopy().Path(), branch, limit)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	commits := make([]repository.Commit, 0, len(infos))
	for _, info := range infos {
		commits = append(commits, commitFromInfo(info, repo.ID()))
	}

	s.logger.Debug("scanned branch history",
		slog.Int64("repo_id", repo.ID()),
		slog.String("branch", branch),
		slog.Int("commits", len(commits)),
	)
	return commits, nil
}

// Branches lists all branches as domain entities.
func (s *RepositoryScanner) Branches(ctx context.Context, repo repository.Repository) ([]repository.Branch, error) {
	infos, err := s.adapter.ListBranches(ctx, repo.WorkingCopy().Path())
	if err != nil {
		return nil, fmt.Errorf("scan branches: %w", err)
	}

	branches := make([]repository.Branch, 0, len(infos))
	for _, info := range infos {
		branches = append(branches, repository.NewBranch(repo.ID(), info.Name, info.HeadSHA, info.IsDefault))
	}
	return branches, nil
}

// Tags lists all tags as domain entities.
func (s *RepositoryScanner) Tags(ctx context.Context, repo repository.Repository) ([]repository.Tag, error) {
	infos, err := s.adapter.ListTags(ctx, repo.WorkingCopy().Path())
	if err != nil {
		return nil, fmt.Errorf("scan tags: %w", err)
	}

	tags := make([]repository.Tag, 0, len(infos))
	for _, info := range infos {
		tags = append(tags, repository.NewTag(repo.ID(), info.Name, info.TargetSHA))
	}
	return tags, nil
}

// Files lists the files of a commit, excluding anything matched by the
// working copy's ignore rules.
func (s *RepositoryScanner) Files(ctx context.Context, repo repository.Repository, commit repository.Commit) ([]repository.File, error) {
	path := repo.WorkingCopy().Path()

	ignore, err := LoadIgnoreRules(path)
	if err != nil {
		return nil, fmt.Errorf("load ignore rules: %w", err)
	}

	infos, err := s.adapter.ListFiles(ctx, path, commit.SHA())
	if err != nil {
		return nil, fmt.Errorf("scan files: %w", err)
	}

	files := make([]repository.File, 0, len(infos))
	for _, info := range infos {
		if ignore.Ignored(info.Path) {
			continue
		}
		files = append(files, repository.NewFile(commit.ID(), info.Path, info.BlobSHA, info.MimeType, info.Size))
	}

	s.logger.Debug("scanned commit files",
		slog.String("sha", commit.ShortSHA()),
		slog.Int("total", len(infos)),
		slog.Int("indexed", len(files)),
	)
	return files, nil
}

// FileContent reads one file's content at a commit.
func (s *RepositoryScanner) FileContent(ctx context.Context, repo repository.Repository, commitSHA, path string) ([]byte, error) {
	return s.adapter.FileContent(ctx, repo.WorkingCopy().Path(), commitSHA, path)
}

func commitFromInfo(info CommitInfo, repoID int64) repository.Commit {
	author := repository.NewAuthor(info.AuthorName, info.AuthorEmail)
	return repository.NewCommit(repoID, info.SHA, info.ParentSHA, author, info.Message, info.CommittedAt)
}
