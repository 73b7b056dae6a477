package repository

import (
	"net/url"
	"strings"
)

// SanitizeRemoteURI strips credentials from a remote URI. The sanitized form
// is the stored repository identity; the original is used for transport only
// and never persisted.
//
//	https://user:pw@host/org/repo.git -> https://host/org/repo.git
//
// Local paths and scp-style remotes are returned unchanged.
func SanitizeRemoteURI(uri string) string {
	if !strings.Contains(uri, "://") {
		return uri
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	parsed.User = nil
	return parsed.String()
}

// IsLocalPath reports whether the URI refers to a local folder rather than a
// remote.
func IsLocalPath(uri string) bool {
	if strings.HasPrefix(uri, "file://") {
		return true
	}
	if strings.Contains(uri, "://") {
		return false
	}
	// scp-style remote: git@host:org/repo.git
	if strings.Contains(uri, "@") && strings.Contains(uri, ":") {
		return false
	}
	return true
}
