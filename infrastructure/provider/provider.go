// Package provider implements clients for OpenAI-compatible embedding and
// chat-completion endpoints.
package provider

import (
	"context"
	"errors"
)

// ErrUpstreamFailure indicates the endpoint returned HTTP 200 but the body
// carried no usable data. Routing providers do this when every upstream is
// down, so retrying is futile.
var ErrUpstreamFailure = errors.New("upstream provider failure")

// ErrNotConfigured indicates the endpoint has no model configured.
var ErrNotConfigured = errors.New("provider endpoint not configured")

// errEmbeddingCountMismatch indicates the API returned a different number of
// vectors than texts sent. Transient upstream load can produce partial
// responses behind a 200 status, so this is retryable.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// TextGenerator produces a completion for a system/user prompt pair. The
// enricher uses it to summarise snippets.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
