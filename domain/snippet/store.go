package snippet

import (
	"context"

	"github.com/kodit-ai/kodit/internal/database"
)

// Store persists snippets.
type Store interface {
	// ReplaceForCommit atomically replaces the commit's snippet set.
	ReplaceForCommit(ctx context.Context, commitID int64, snippets []Snippet) ([]Snippet, error)
	ForCommit(ctx context.Context, commitID int64) ([]Snippet, error)
	ByIDs(ctx context.Context, ids []int64) ([]Snippet, error)
	BySHAs(ctx context.Context, shas []string) ([]Snippet, error)
	Find(ctx context.Context, options ...database.Option) ([]Snippet, error)
	SaveEnrichment(ctx context.Context, snippetID int64, text string) error
	Count(ctx context.Context, options ...database.Option) (int64, error)
}
