// Package git acquires repositories and reads history through go-git.
package git

import (
	"context"
	"time"
)

// CommitInfo is raw commit metadata read from a repository.
type CommitInfo struct {
	SHA         string
	ParentSHA   string
	AuthorName  string
	AuthorEmail string
	Message     string
	CommittedAt time.Time
}

// BranchInfo is raw branch metadata.
type BranchInfo struct {
	Name      string
	HeadSHA   string
	IsDefault bool
}

// TagInfo is raw tag metadata. Annotated tags resolve to their target
// commit, lightweight tags point at it directly.
type TagInfo struct {
	Name      string
	TargetSHA string
}

// FileInfo is one entry of a commit tree.
type FileInfo struct {
	Path     string
	BlobSHA  string
	MimeType string
	Size     int64
}

// Adapter abstracts git plumbing so services can be tested without real
// repositories.
type Adapter interface {
	// Clone clones the remote's default branch into localPath with a clean
	// worktree.
	Clone(ctx context.Context, remoteURI, localPath string) error
	// Fetch updates refs from origin. Already up to date is not an error.
	Fetch(ctx context.Context, localPath string) error
	// Checkout force-checks-out a commit, discarding local changes.
	Checkout(ctx context.Context, localPath, commitSHA string) error
	// CheckoutBranch force-checks-out a branch, local first then origin.
	CheckoutBranch(ctx context.Context, localPath, branch string) error
	// DefaultBranch resolves the remote default branch, falling back to
	// main, master, then the first local branch.
	DefaultBranch(ctx context.Context, localPath string) (string, error)
	// HeadSHA returns the tip of a branch, or HEAD when branch is empty.
	HeadSHA(ctx context.Context, localPath, branch string) (string, error)
	// ListCommits walks history newest first from a branch tip. A limit of
	// zero means unbounded.
	ListCommits(ctx context.Context, localPath, branch string, limit int) ([]CommitInfo, error)
	// CommitDetails reads one commit's metadata.
	CommitDetails(ctx context.Context, localPath, commitSHA string) (CommitInfo, error)
	// ListBranches returns local plus remote-only branches.
	ListBranches(ctx context.Context, localPath string) ([]BranchInfo, error)
	// ListTags returns all tags with annotated tags resolved.
	ListTags(ctx context.Context, localPath string) ([]TagInfo, error)
	// ListFiles returns the full tree of a commit.
	ListFiles(ctx context.Context, localPath, commitSHA string) ([]FileInfo, error)
	// FileContent reads one blob at a commit.
	FileContent(ctx context.Context, localPath, commitSHA, path string) ([]byte, error)
	// Exists reports whether localPath holds a git repository.
	Exists(ctx context.Context, localPath string) (bool, error)
	// ProbeRemote lists the remote's refs without cloning, verifying the
	// URI is reachable and is a git repository.
	ProbeRemote(ctx context.Context, remoteURI string) error
}
