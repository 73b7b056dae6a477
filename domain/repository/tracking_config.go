package repository

// TrackingConfig selects which reference a repository follows: a named
// branch, or the latest version tag.
type TrackingConfig struct {
	branch           string
	latestVersionTag bool
}

// TrackBranch follows a named branch.
func TrackBranch(branch string) TrackingConfig {
	return TrackingConfig{branch: branch}
}

// TrackLatestVersionTag follows the newest tag matching the version pattern.
func TrackLatestVersionTag() TrackingConfig {
	return TrackingConfig{latestVersionTag: true}
}

// Branch returns the tracked branch name, empty when tracking tags.
func (t TrackingConfig) Branch() string { return t.branch }

// IsBranch reports whether a branch is tracked.
func (t TrackingConfig) IsBranch() bool { return t.branch != "" }

// IsLatestVersionTag reports whether the latest version tag is tracked.
func (t TrackingConfig) IsLatestVersionTag() bool { return t.latestVersionTag }

// IsEmpty reports whether nothing is tracked yet.
func (t TrackingConfig) IsEmpty() bool {
	return t.branch == "" && !t.latestVersionTag
}
