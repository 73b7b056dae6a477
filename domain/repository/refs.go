package repository

import "regexp"

// versionTagPattern matches semver-like tags: v1.2.3, v0.4.0-rc1, v2.0.0+meta.
var versionTagPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+`)

// Branch is a named branch of a repository pointing at a commit.
type Branch struct {
	id        int64
	repoID    int64
	name      string
	targetSHA string
	isDefault bool
}

// NewBranch creates a Branch.
func NewBranch(repoID int64, name, targetSHA string, isDefault bool) Branch {
	return Branch{repoID: repoID, name: name, targetSHA: targetSHA, isDefault: isDefault}
}

// ReconstructBranch rebuilds a Branch from persistence.
func ReconstructBranch(id, repoID int64, name, targetSHA string, isDefault bool) Branch {
	return Branch{id: id, repoID: repoID, name: name, targetSHA: targetSHA, isDefault: isDefault}
}

// ID returns the row id.
func (b Branch) ID() int64 { return b.id }

// RepoID returns the owning repository id.
func (b Branch) RepoID() int64 { return b.repoID }

// Name returns the branch name.
func (b Branch) Name() string { return b.name }

// TargetSHA returns the commit the branch points at.
func (b Branch) TargetSHA() string { return b.targetSHA }

// IsDefault reports whether this is the remote default branch.
func (b Branch) IsDefault() bool { return b.isDefault }

// WithID returns a copy with the row id set.
func (b Branch) WithID(id int64) Branch {
	b.id = id
	return b
}

// Tag is a named tag of a repository pointing at a commit.
type Tag struct {
	id        int64
	repoID    int64
	name      string
	targetSHA string
}

// NewTag creates a Tag.
func NewTag(repoID int64, name, targetSHA string) Tag {
	return Tag{repoID: repoID, name: name, targetSHA: targetSHA}
}

// ReconstructTag rebuilds a Tag from persistence.
func ReconstructTag(id, repoID int64, name, targetSHA string) Tag {
	return Tag{id: id, repoID: repoID, name: name, targetSHA: targetSHA}
}

// ID returns the row id.
func (t Tag) ID() int64 { return t.id }

// RepoID returns the owning repository id.
func (t Tag) RepoID() int64 { return t.repoID }

// Name returns the tag name.
func (t Tag) Name() string { return t.name }

// TargetSHA returns the commit the tag points at.
func (t Tag) TargetSHA() string { return t.targetSHA }

// WithID returns a copy with the row id set.
func (t Tag) WithID(id int64) Tag {
	t.id = id
	return t
}

// IsVersionTag reports whether the tag name looks like a release version.
func (t Tag) IsVersionTag() bool {
	return versionTagPattern.MatchString(t.name)
}
