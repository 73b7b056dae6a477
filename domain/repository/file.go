package repository

// File is one file of a commit snapshot, identified by (commit, path).
type File struct {
	id       int64
	commitID int64
	path     string
	blobSHA  string
	mimeType string
	size     int64
}

// NewFile creates a File scanned from a commit tree.
func NewFile(commitID int64, path, blobSHA, mimeType string, size int64) File {
	return File{
		commitID: commitID,
		path:     path,
		blobSHA:  blobSHA,
		mimeType: mimeType,
		size:     size,
	}
}

// ReconstructFile rebuilds a File from persistence.
func ReconstructFile(id, commitID int64, path, blobSHA, mimeType string, size int64) File {
	return File{
		id:       id,
		commitID: commitID,
		path:     path,
		blobSHA:  blobSHA,
		mimeType: mimeType,
		size:     size,
	}
}

// ID returns the row id.
func (f File) ID() int64 { return f.id }

// CommitID returns the owning commit id.
func (f File) CommitID() int64 { return f.commitID }

// Path returns the path within the commit tree.
func (f File) Path() string { return f.path }

// BlobSHA returns the SHA-256 of the file content.
func (f File) BlobSHA() string { return f.blobSHA }

// MimeType returns the detected MIME type.
func (f File) MimeType() string { return f.mimeType }

// Size returns the content length in bytes.
func (f File) Size() int64 { return f.size }

// WithID returns a copy with the row id set.
func (f File) WithID(id int64) File {
	f.id = id
	return f
}
