package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Remote access errors.
var (
	// ErrUnreachableRepo indicates the remote does not exist or cannot be
	// reached.
	ErrUnreachableRepo = errors.New("repository unreachable")

	// ErrAuthFailure indicates the remote rejected our credentials.
	ErrAuthFailure = errors.New("repository authentication failed")
)

// classifyRemoteErr wraps transport failures in the package sentinels so
// callers can tell a missing repository from bad credentials.
func classifyRemoteErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %w", ErrAuthFailure, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %w", ErrUnreachableRepo, err)
	}
	return err
}
