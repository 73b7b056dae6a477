package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kodit-ai/kodit/domain/repository"
)

// RepositoryCloner manages local working copies under a clone directory.
// Clone paths derive from the sanitized URI so re-adding the same remote
// reuses the same directory.
type RepositoryCloner struct {
	adapter  Adapter
	cloneDir string
	logger   *slog.Logger
}

// NewRepositoryCloner creates a RepositoryCloner rooted at cloneDir.
func NewRepositoryCloner(adapter Adapter, cloneDir string, logger *slog.Logger) *RepositoryCloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryCloner{adapter: adapter, cloneDir: cloneDir, logger: logger}
}

// ClonePath returns the local directory for a sanitized remote URI.
func (c *RepositoryCloner) ClonePath(sanitizedURI string) string {
	return filepath.Join(c.cloneDir, dirNameForURI(sanitizedURI))
}

// Clone clones the remote and returns the working copy. The transport uses
// the full remote URI, credentials included; the clone path and the stored
// working copy key off the sanitized form. A failed clone leaves no partial
// directory behind.
func (c *RepositoryCloner) Clone(ctx context.Context, repo repository.Repository) (repository.WorkingCopy, error) {
	uri := repo.SanitizedURI()
	path := c.ClonePath(uri)

	if _, err := os.Stat(path); err == nil {
		c.logger.Warn("removing stale clone", slog.String("path", path))
		if err := os.RemoveAll(path); err != nil {
			return repository.WorkingCopy{}, fmt.Errorf("remove stale clone: %w", err)
		}
	}

	if err := c.adapter.Clone(ctx, repo.RemoteURI(), path); err != nil {
		_ = os.RemoveAll(path)
		return repository.WorkingCopy{}, err
	}
	return repository.NewWorkingCopy(path, uri), nil
}

// Ensure clones when no working copy exists yet, otherwise fetches.
func (c *RepositoryCloner) Ensure(ctx context.Context, repo repository.Repository) (repository.WorkingCopy, error) {
	if repo.HasWorkingCopy() {
		path := repo.WorkingCopy().Path()
		exists, err := c.adapter.Exists(ctx, path)
		if err != nil {
			return repository.WorkingCopy{}, err
		}
		if exists {
			if err := c.adapter.Fetch(ctx, path); err != nil {
				return repository.WorkingCopy{}, err
			}
			return repo.WorkingCopy(), nil
		}
		c.logger.Info("working copy missing, re-cloning",
			slog.Int64("repo_id", repo.ID()),
			slog.String("path", path),
		)
	}
	return c.Clone(ctx, repo)
}

// SyncTarget fetches and resolves the commit the repository's tracking
// config points at, checking it out. Returns the target SHA.
func (c *RepositoryCloner) SyncTarget(ctx context.Context, repo repository.Repository) (string, error) {
	if !repo.HasWorkingCopy() {
		return "", fmt.Errorf("repository %d has no working copy", repo.ID())
	}
	path := repo.WorkingCopy().Path()

	if err := c.adapter.Fetch(ctx, path); err != nil {
		return "", err
	}

	tc := repo.TrackingConfig()
	switch {
	case tc.IsLatestVersionTag():
		return c.checkoutLatestVersionTag(ctx, path)
	case tc.IsBranch():
		return c.checkoutBranch(ctx, path, tc.Branch())
	default:
		branch, err := c.adapter.DefaultBranch(ctx, path)
		if err != nil {
			return "", err
		}
		return c.checkoutBranch(ctx, path, branch)
	}
}

// Remove deletes the working copy directory.
func (c *RepositoryCloner) Remove(ctx context.Context, repo repository.Repository) error {
	if !repo.HasWorkingCopy() {
		return nil
	}
	if err := os.RemoveAll(repo.WorkingCopy().Path()); err != nil {
		return fmt.Errorf("remove working copy: %w", err)
	}
	return nil
}

func (c *RepositoryCloner) checkoutBranch(ctx context.Context, path, branch string) (string, error) {
	if err := c.adapter.CheckoutBranch(ctx, path, branch); err != nil {
		c.logger.Warn("branch checkout failed, falling back to default branch",
			slog.String("branch", branch),
			slog.String("error", err.Error()),
		)
		fallback, derr := c.adapter.DefaultBranch(ctx, path)
		if derr != nil {
			return "", derr
		}
		if err := c.adapter.CheckoutBranch(ctx, path, fallback); err != nil {
			return "", err
		}
		branch = fallback
	}
	return c.adapter.HeadSHA(ctx, path, branch)
}

func (c *RepositoryCloner) checkoutLatestVersionTag(ctx context.Context, path string) (string, error) {
	tags, err := c.adapter.ListTags(ctx, path)
	if err != nil {
		return "", err
	}

	var latest *repository.Tag
	for _, info := range tags {
		tag := repository.NewTag(0, info.Name, info.TargetSHA)
		if !tag.IsVersionTag() {
			continue
		}
		if latest == nil || versionLess(latest.Name(), tag.Name()) {
			t := tag
			latest = &t
		}
	}
	if latest == nil {
		return "", fmt.Errorf("no version tags in repository at %s", path)
	}

	if err := c.adapter.Checkout(ctx, path, latest.TargetSHA()); err != nil {
		return "", err
	}
	return latest.TargetSHA(), nil
}

// dirNameForURI flattens a URI into a filesystem-safe directory name, with
// a hash suffix when truncation is needed to stay within path limits.
func dirNameForURI(uri string) string {
	out := make([]byte, 0, len(uri))
	for _, b := range []byte(uri) {
		switch b {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '@':
			out = append(out, '_')
		default:
			out = append(out, b)
		}
	}

	s := string(out)
	for _, prefix := range []string{"https___", "http___", "git___", "ssh___", "file___"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok && rest != "" {
			s = rest
			break
		}
	}

	const maxLen = 80
	if len(s) > maxLen {
		sum := sha256.Sum256([]byte(uri))
		suffix := hex.EncodeToString(sum[:8])
		s = s[:maxLen-len(suffix)-1] + "-" + suffix
	}
	return s
}

// versionLess compares two version tag names numerically, component by
// component, so v1.10.0 sorts after v1.9.9.
func versionLess(a, b string) bool {
	pa := versionParts(a)
	pb := versionParts(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	if len(pa) != len(pb) {
		return len(pa) < len(pb)
	}
	return a < b
}

func versionParts(tag string) []int {
	tag = strings.TrimPrefix(tag, "v")
	if i := strings.IndexAny(tag, "-+"); i >= 0 {
		tag = tag[:i]
	}
	var parts []int
	for _, piece := range strings.Split(tag, ".") {
		n, err := strconv.Atoi(piece)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
