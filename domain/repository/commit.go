package repository

import (
	"fmt"
	"strings"
	"time"
)

// Author is a git author or committer signature.
type Author struct {
	name  string
	email string
}

// NewAuthor creates an Author.
func NewAuthor(name, email string) Author {
	return Author{name: name, email: email}
}

// Name returns the author name.
func (a Author) Name() string { return a.name }

// Email returns the author email.
func (a Author) Email() string { return a.email }

// String formats as "Name <email>".
func (a Author) String() string {
	if a.email == "" {
		return a.name
	}
	return fmt.Sprintf("%s <%s>", a.name, a.email)
}

// ParseAuthor splits a "Name <email>" string back into an Author.
func ParseAuthor(s string) Author {
	open := strings.LastIndex(s, "<")
	if open == -1 || !strings.HasSuffix(s, ">") {
		return Author{name: strings.TrimSpace(s)}
	}
	return Author{
		name:  strings.TrimSpace(s[:open]),
		email: strings.TrimSuffix(s[open+1:], ">"),
	}
}

// Commit is one commit of a tracked repository, identified by (repo, SHA).
type Commit struct {
	id          int64
	repoID      int64
	sha         string
	parentSHA   string
	author      Author
	message     string
	committedAt time.Time
	createdAt   time.Time
}

// NewCommit creates a Commit scanned from a repository.
func NewCommit(repoID int64, sha, parentSHA string, author Author, message string, committedAt time.Time) Commit {
	return Commit{
		repoID:      repoID,
		sha:         sha,
		parentSHA:   parentSHA,
		author:      author,
		message:     message,
		committedAt: committedAt,
		createdAt:   time.Now().UTC(),
	}
}

// ReconstructCommit rebuilds a Commit from persistence.
func ReconstructCommit(
	id, repoID int64,
	sha, parentSHA string,
	author Author,
	message string,
	committedAt, createdAt time.Time,
) Commit {
	return Commit{
		id:          id,
		repoID:      repoID,
		sha:         sha,
		parentSHA:   parentSHA,
		author:      author,
		message:     message,
		committedAt: committedAt,
		createdAt:   createdAt,
	}
}

// ID returns the row id.
func (c Commit) ID() int64 { return c.id }

// RepoID returns the owning repository id.
func (c Commit) RepoID() int64 { return c.repoID }

// SHA returns the full commit SHA.
func (c Commit) SHA() string { return c.sha }

// ParentSHA returns the first parent SHA, empty for root commits.
func (c Commit) ParentSHA() string { return c.parentSHA }

// Author returns the commit author.
func (c Commit) Author() Author { return c.author }

// Message returns the full commit message.
func (c Commit) Message() string { return c.message }

// CommittedAt returns the commit timestamp.
func (c Commit) CommittedAt() time.Time { return c.committedAt }

// CreatedAt returns when the commit row was scanned.
func (c Commit) CreatedAt() time.Time { return c.createdAt }

// WithID returns a copy with the row id set.
func (c Commit) WithID(id int64) Commit {
	c.id = id
	return c
}

// ShortSHA returns the first seven characters of the SHA.
func (c Commit) ShortSHA() string {
	if len(c.sha) <= 7 {
		return c.sha
	}
	return c.sha[:7]
}

// ShortMessage returns the first line of the message.
func (c Commit) ShortMessage() string {
	if i := strings.IndexByte(c.message, '\n'); i >= 0 {
		return c.message[:i]
	}
	return c.message
}
