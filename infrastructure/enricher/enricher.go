// Package enricher generates natural-language summaries for code snippets.
package enricher

import (
	"context"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kodit-ai/kodit/infrastructure/provider"
)

// DefaultParallelism bounds concurrent provider calls.
const DefaultParallelism = 20

const systemPrompt = `You are a code documentation assistant. Summarise the
given code snippet in one short paragraph: what it does, its inputs and
outputs, and any notable behaviour. Respond with the summary only.`

// Some models emit chain-of-thought inside <think> tags.
var thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Request is one snippet to summarise.
type Request struct {
	ID      int64
	Content string
}

// Response carries the summary for one request. Text is empty when the
// provider call failed or the request had no content.
type Response struct {
	ID   int64
	Text string
}

// ProviderEnricher summarises snippets through a TextGenerator with bounded
// parallelism. Individual provider failures yield empty summaries instead of
// failing the batch; only context cancellation aborts it.
type ProviderEnricher struct {
	generator   provider.TextGenerator
	parallelism int
	logger      *slog.Logger
}

// NewProviderEnricher creates a ProviderEnricher. A non-positive parallelism
// falls back to DefaultParallelism.
func NewProviderEnricher(generator provider.TextGenerator, parallelism int, logger *slog.Logger) *ProviderEnricher {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &ProviderEnricher{generator: generator, parallelism: parallelism, logger: logger}
}

// Enrich summarises all requests and returns responses in request order.
func (e *ProviderEnricher) Enrich(ctx context.Context, requests []Request) ([]Response, error) {
	responses := make([]Response, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(e.parallelism))

	for i, req := range requests {
		responses[i] = Response{ID: req.ID}
		if req.Content == "" {
			continue
		}

		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			text, err := e.generator.GenerateText(ctx, systemPrompt, req.Content)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("enrichment failed",
					slog.Int64("snippet_id", req.ID),
					slog.Any("error", err))
				return nil
			}
			responses[i].Text = stripThinkTags(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func stripThinkTags(text string) string {
	return thinkTags.ReplaceAllString(text, "")
}
