// Package repository holds the git acquisition domain types.
package repository

import (
	"errors"
	"time"
)

// ErrEmptyRemoteURI indicates a repository was created without a remote URI.
var ErrEmptyRemoteURI = errors.New("remote URI cannot be empty")

// Repository is the aggregate root for one tracked source repository. Its
// identity is the sanitized remote URI; the full remote URI, credentials
// included, is kept alongside for git transport only and never leaves the
// acquisition path.
type Repository struct {
	id             int64
	remoteURI      string
	sanitizedURI   string
	workingCopy    WorkingCopy
	trackingConfig TrackingConfig
	lastScannedAt  *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewRepository creates a Repository from a (possibly credentialed) remote
// URI. The identity is sanitized; the full URI stays available for clones.
func NewRepository(remoteURI string) (Repository, error) {
	if remoteURI == "" {
		return Repository{}, ErrEmptyRemoteURI
	}
	now := time.Now().UTC()
	return Repository{
		remoteURI:    remoteURI,
		sanitizedURI: SanitizeRemoteURI(remoteURI),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructRepository rebuilds a Repository from persistence.
func ReconstructRepository(
	id int64,
	remoteURI string,
	sanitizedURI string,
	workingCopy WorkingCopy,
	trackingConfig TrackingConfig,
	lastScannedAt *time.Time,
	createdAt, updatedAt time.Time,
) Repository {
	return Repository{
		id:             id,
		remoteURI:      remoteURI,
		sanitizedURI:   sanitizedURI,
		workingCopy:    workingCopy,
		trackingConfig: trackingConfig,
		lastScannedAt:  lastScannedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the repository id.
func (r Repository) ID() int64 { return r.id }

// RemoteURI returns the full remote URI for git transport. Rows recorded
// before the full URI was kept fall back to the sanitized form.
func (r Repository) RemoteURI() string {
	if r.remoteURI == "" {
		return r.sanitizedURI
	}
	return r.remoteURI
}

// SanitizedURI returns the credential-free remote URI.
func (r Repository) SanitizedURI() string { return r.sanitizedURI }

// WorkingCopy returns the local clone, zero when not yet cloned.
func (r Repository) WorkingCopy() WorkingCopy { return r.workingCopy }

// TrackingConfig returns what the repository follows.
func (r Repository) TrackingConfig() TrackingConfig { return r.trackingConfig }

// LastScannedAt returns when the repository was last scanned, nil for never.
func (r Repository) LastScannedAt() *time.Time { return r.lastScannedAt }

// CreatedAt returns the creation time.
func (r Repository) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last modification time.
func (r Repository) UpdatedAt() time.Time { return r.updatedAt }

// HasWorkingCopy reports whether a local clone exists.
func (r Repository) HasWorkingCopy() bool { return !r.workingCopy.IsEmpty() }

// WithID returns a copy with the id set after persistence.
func (r Repository) WithID(id int64) Repository {
	r.id = id
	return r
}

// WithRemoteURI returns a copy with the transport URI replaced. Re-tracking
// a remote with fresh credentials updates what later clones authenticate
// with.
func (r Repository) WithRemoteURI(remoteURI string) Repository {
	r.remoteURI = remoteURI
	r.updatedAt = time.Now().UTC()
	return r
}

// WithWorkingCopy returns a copy with the working copy replaced.
func (r Repository) WithWorkingCopy(wc WorkingCopy) Repository {
	r.workingCopy = wc
	r.updatedAt = time.Now().UTC()
	return r
}

// WithTrackingConfig returns a copy with the tracking config replaced.
func (r Repository) WithTrackingConfig(tc TrackingConfig) Repository {
	r.trackingConfig = tc
	r.updatedAt = time.Now().UTC()
	return r
}

// Scanned returns a copy with the last-scanned time set.
func (r Repository) Scanned(at time.Time) Repository {
	t := at.UTC()
	r.lastScannedAt = &t
	r.updatedAt = t
	return r
}
