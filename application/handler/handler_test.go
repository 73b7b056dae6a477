package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/persistence"
	"github.com/kodit-ai/kodit/internal/database"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) database.Database {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db := database.FromGorm(gormDB)
	require.NoError(t, persistence.Migrate(context.Background(), db))
	return db
}

// fakeAdapter serves canned git data from memory.
type fakeAdapter struct {
	commits       []git.CommitInfo
	branches      []git.BranchInfo
	tags          []git.TagInfo
	files         []git.FileInfo
	contents      map[string][]byte
	defaultBranch string
	fetchCalls    int
}

func (a *fakeAdapter) Clone(context.Context, string, string) error { return nil }

func (a *fakeAdapter) Fetch(context.Context, string) error {
	a.fetchCalls++
	return nil
}

func (a *fakeAdapter) Checkout(context.Context, string, string) error       { return nil }
func (a *fakeAdapter) CheckoutBranch(context.Context, string, string) error { return nil }

func (a *fakeAdapter) DefaultBranch(context.Context, string) (string, error) {
	if a.defaultBranch == "" {
		return "main", nil
	}
	return a.defaultBranch, nil
}

func (a *fakeAdapter) HeadSHA(context.Context, string, string) (string, error) {
	if len(a.commits) == 0 {
		return "", fmt.Errorf("no commits")
	}
	return a.commits[0].SHA, nil
}

func (a *fakeAdapter) ListCommits(_ context.Context, _, _ string, limit int) ([]git.CommitInfo, error) {
	commits := a.commits
	if limit > 0 && limit < len(commits) {
		commits = commits[:limit]
	}
	out := make([]git.CommitInfo, len(commits))
	copy(out, commits)
	return out, nil
}

func (a *fakeAdapter) CommitDetails(_ context.Context, _, sha string) (git.CommitInfo, error) {
	for _, c := range a.commits {
		if c.SHA == sha {
			return c, nil
		}
	}
	return git.CommitInfo{}, fmt.Errorf("commit %s not found", sha)
}

func (a *fakeAdapter) ListBranches(context.Context, string) ([]git.BranchInfo, error) {
	return a.branches, nil
}

func (a *fakeAdapter) ListTags(context.Context, string) ([]git.TagInfo, error) {
	return a.tags, nil
}

func (a *fakeAdapter) ListFiles(context.Context, string, string) ([]git.FileInfo, error) {
	return a.files, nil
}

func (a *fakeAdapter) FileContent(_ context.Context, _, _, path string) ([]byte, error) {
	content, ok := a.contents[path]
	if !ok {
		return nil, fmt.Errorf("no content for %s", path)
	}
	return content, nil
}

func (a *fakeAdapter) Exists(context.Context, string) (bool, error) { return true, nil }
func (a *fakeAdapter) ProbeRemote(context.Context, string) error    { return nil }
