package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// ErrBranchNotFound indicates neither a local nor an origin branch with the
// requested name exists.
var ErrBranchNotFound = errors.New("branch not found")

var _ Adapter = (*GoGitAdapter)(nil)

// GoGitAdapter implements Adapter on the pure-Go git implementation.
type GoGitAdapter struct {
	logger *slog.Logger
}

// NewGoGitAdapter creates a GoGitAdapter.
func NewGoGitAdapter(logger *slog.Logger) *GoGitAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoGitAdapter{logger: logger}
}

// Clone clones the remote's default branch into localPath.
func (g *GoGitAdapter) Clone(ctx context.Context, remoteURI, localPath string) error {
	g.logger.Info("cloning repository",
		slog.String("uri", remoteURI),
		slog.String("path", localPath),
	)

	_, err := gogit.PlainCloneContext(ctx, localPath, false, &gogit.CloneOptions{URL: remoteURI})
	if err != nil {
		return fmt.Errorf("clone repository: %w", classifyRemoteErr(err))
	}
	return nil
}

// Fetch updates refs from origin, tolerating an already up to date remote.
func (g *GoGitAdapter) Fetch(ctx context.Context, localPath string) error {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		Force:      true,
		Tags:       gogit.AllTags,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch repository: %w", classifyRemoteErr(err))
	}
	return nil
}

// Checkout force-checks-out a commit, discarding any local changes.
func (g *GoGitAdapter) Checkout(ctx context.Context, localPath, commitSHA string) error {
	worktree, err := openWorktree(localPath)
	if err != nil {
		return err
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Hash:  plumbing.NewHash(commitSHA),
		Force: true,
	})
	if err != nil {
		return fmt.Errorf("checkout commit: %w", err)
	}
	return nil
}

// CheckoutBranch force-checks-out a branch, preferring local over origin.
func (g *GoGitAdapter) CheckoutBranch(ctx context.Context, localPath, branch string) error {
	worktree, err := openWorktree(localPath)
	if err != nil {
		return err
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	})
	if err == nil {
		return nil
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewRemoteReferenceName("origin", branch),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}

// DefaultBranch resolves origin/HEAD, then main or master, then the first
// local branch.
func (g *GoGitAdapter) DefaultBranch(ctx context.Context, localPath string) (string, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "HEAD"), true)
	if err == nil {
		return strings.TrimPrefix(ref.Name().Short(), "origin/"), nil
	}

	for _, candidate := range []string{"main", "master"} {
		if _, err := findBranchRef(repo, candidate); err == nil {
			return candidate, nil
		}
	}

	branches, err := repo.Branches()
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	defer branches.Close()

	first, err := branches.Next()
	if err != nil {
		return "", errors.New("repository has no branches")
	}
	return first.Name().Short(), nil
}

// HeadSHA returns the branch tip, or HEAD when branch is empty.
func (g *GoGitAdapter) HeadSHA(ctx context.Context, localPath, branch string) (string, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	if branch == "" || branch == "HEAD" {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("resolve HEAD: %w", err)
		}
		return head.Hash().String(), nil
	}

	ref, err := findBranchRef(repo, branch)
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// ListCommits walks history newest first from the branch tip.
func (g *GoGitAdapter) ListCommits(ctx context.Context, localPath, branch string, limit int) ([]CommitInfo, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	ref, err := findBranchRef(repo, branch)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&gogit.LogOptions{From: ref.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read commit log: %w", err)
	}
	defer iter.Close()

	var commits []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, commitToInfo(c))
		if limit > 0 && len(commits) >= limit {
			return storerIterStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storerIterStop) {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// storerIterStop terminates a ForEach walk early.
var storerIterStop = errors.New("stop iteration")

// CommitDetails reads one commit.
func (g *GoGitAdapter) CommitDetails(ctx context.Context, localPath, commitSHA string) (CommitInfo, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repository: %w", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(commitSHA))
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit %s: %w", commitSHA, err)
	}
	return commitToInfo(commit), nil
}

// ListBranches returns local branches plus remote-only branches, with the
// HEAD branch flagged as default.
func (g *GoGitAdapter) ListBranches(ctx context.Context, localPath string) ([]BranchInfo, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	var branches []BranchInfo
	seen := make(map[string]bool)

	local, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer local.Close()

	err = local.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		branches = append(branches, BranchInfo{
			Name:      name,
			HeadSHA:   ref.Hash().String(),
			IsDefault: ref.Hash() == head.Hash(),
		})
		seen[name] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}

	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer refs.Close()

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() {
			return nil
		}
		name := strings.TrimPrefix(ref.Name().Short(), "origin/")
		if name == "HEAD" || seen[name] {
			return nil
		}
		branches = append(branches, BranchInfo{Name: name, HeadSHA: ref.Hash().String()})
		seen[name] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate remote refs: %w", err)
	}

	return branches, nil
}

// ListTags returns all tags with annotated tags resolved to their target.
func (g *GoGitAdapter) ListTags(ctx context.Context, localPath string) ([]TagInfo, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	var tags []TagInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		info := TagInfo{Name: ref.Name().Short()}
		if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
			info.TargetSHA = tagObj.Target.String()
		} else {
			info.TargetSHA = ref.Hash().String()
		}
		tags = append(tags, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// ListFiles returns every blob in a commit tree. BlobSHA is the SHA-256 of
// the raw content, not git's object id.
func (g *GoGitAdapter) ListFiles(ctx context.Context, localPath, commitSHA string) ([]FileInfo, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(commitSHA))
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", commitSHA, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	var files []FileInfo
	err = tree.Files().ForEach(func(f *object.File) error {
		sum, err := contentSHA256(f)
		if err != nil {
			return fmt.Errorf("hash %s: %w", f.Name, err)
		}
		files = append(files, FileInfo{
			Path:     f.Name,
			BlobSHA:  sum,
			Size:     f.Size,
			MimeType: mimeTypeForPath(f.Name),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func contentSHA256(f *object.File) (string, error) {
	reader, err := f.Blob.Reader()
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileContent reads one blob at a commit.
func (g *GoGitAdapter) FileContent(ctx context.Context, localPath, commitSHA, path string) ([]byte, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(commitSHA))
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", commitSHA, err)
	}

	file, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return []byte(content), nil
}

// Exists reports whether localPath holds a git repository.
func (g *GoGitAdapter) Exists(ctx context.Context, localPath string) (bool, error) {
	_, err := gogit.PlainOpen(localPath)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return false, nil
		}
		return false, fmt.Errorf("open repository: %w", err)
	}
	return true, nil
}

// ProbeRemote lists the remote's refs into memory without cloning.
func (g *GoGitAdapter) ProbeRemote(ctx context.Context, remoteURI string) error {
	remote := gogit.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURI},
	})
	if _, err := remote.ListContext(ctx, &gogit.ListOptions{}); err != nil {
		return fmt.Errorf("probe remote %s: %w", remoteURI, classifyRemoteErr(err))
	}
	return nil
}

func openWorktree(localPath string) (*gogit.Worktree, error) {
	repo, err := gogit.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return worktree, nil
}

func findBranchRef(repo *gogit.Repository, branch string) (*plumbing.Reference, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return ref, nil
	}
	ref, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err == nil {
		return ref, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
}

func commitToInfo(c *object.Commit) CommitInfo {
	info := CommitInfo{
		SHA:         c.Hash.String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		Message:     c.Message,
		CommittedAt: c.Committer.When,
	}
	if len(c.ParentHashes) > 0 {
		info.ParentSHA = c.ParentHashes[0].String()
	}
	return info
}

func mimeTypeForPath(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "text/plain"
}
