package repository

// WorkingCopy is a local filesystem clone of a repository.
type WorkingCopy struct {
	path string
	uri  string
}

// NewWorkingCopy creates a WorkingCopy at path cloned from uri.
func NewWorkingCopy(path, uri string) WorkingCopy {
	return WorkingCopy{path: path, uri: uri}
}

// Path returns the local filesystem path.
func (w WorkingCopy) Path() string { return w.path }

// URI returns the remote the copy was cloned from.
func (w WorkingCopy) URI() string { return w.uri }

// IsEmpty reports whether no clone exists.
func (w WorkingCopy) IsEmpty() bool { return w.path == "" }
