package git

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreRules decides which files of a working copy are excluded from
// indexing. Gitignore patterns from the worktree combine with patterns from
// an optional .noindex file at the repository root, which uses the same
// syntax.
type IgnoreRules struct {
	matcher gitignore.Matcher
}

// LoadIgnoreRules reads .gitignore files throughout the worktree plus the
// root .noindex file.
func LoadIgnoreRules(worktreePath string) (IgnoreRules, error) {
	fs := osfs.New(worktreePath)

	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return IgnoreRules{}, err
	}

	noindex, err := readNoIndexPatterns(filepath.Join(worktreePath, ".noindex"))
	if err != nil {
		return IgnoreRules{}, err
	}
	patterns = append(patterns, noindex...)

	return IgnoreRules{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Ignored reports whether a slash-separated relative path is excluded.
// Anything under .git is always excluded.
func (r IgnoreRules) Ignored(relPath string) bool {
	if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
		return true
	}
	if r.matcher == nil {
		return false
	}
	return r.matcher.Match(strings.Split(relPath, "/"), false)
}

func readNoIndexPatterns(path string) ([]gitignore.Pattern, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, scanner.Err()
}
