package handler

import (
	"context"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/enricher"
	"github.com/kodit-ai/kodit/infrastructure/tracking"
)

// EnrichSnippets generates natural-language summaries for a commit's
// snippets and embeds the summaries into the text vector space. Snippets
// that already carry an enrichment are left alone.
type EnrichSnippets struct {
	snippets snippet.Store
	vectors  search.VectorStore
	embedder search.Embedder
	enricher *enricher.ProviderEnricher
	budget   search.TokenBudget
	trackers *TrackerFactory
	logger   *slog.Logger
}

// NewEnrichSnippets creates an EnrichSnippets handler. embedder may be nil,
// in which case summaries are stored but not embedded.
func NewEnrichSnippets(
	snippets snippet.Store,
	vectors search.VectorStore,
	embedder search.Embedder,
	enr *enricher.ProviderEnricher,
	budget search.TokenBudget,
	trackers *TrackerFactory,
	logger *slog.Logger,
) *EnrichSnippets {
	return &EnrichSnippets{
		snippets: snippets,
		vectors:  vectors,
		embedder: embedder,
		enricher: enr,
		budget:   budget,
		trackers: trackers,
		logger:   logger,
	}
}

// Execute implements service.Handler.
func (h *EnrichSnippets) Execute(ctx context.Context, payload map[string]any) error {
	commitID, err := commitIDFromPayload(payload)
	if err != nil {
		return err
	}
	snips, err := h.snippets.ForCommit(ctx, commitID)
	if err != nil {
		return err
	}

	tracker := h.trackers.Tracker(task.OperationSnippetEnrich, task.TrackableCommit, commitID)

	pending := make([]snippet.Snippet, 0, len(snips))
	for _, sn := range snips {
		if !sn.HasEnrichment() {
			pending = append(pending, sn)
		}
	}
	if len(pending) == 0 {
		tracker.Skip(ctx, "all snippets already enriched")
		return nil
	}
	tracker.SetTotal(ctx, len(pending))

	requests := make([]enricher.Request, len(pending))
	for i, sn := range pending {
		requests[i] = enricher.Request{ID: sn.ID(), Content: sn.Content()}
	}
	responses, err := h.enricher.Enrich(ctx, requests)
	if err != nil {
		return err
	}

	bySHA := make(map[int64]string, len(pending))
	for _, sn := range pending {
		bySHA[sn.ID()] = sn.SHA()
	}

	enriched := make([]search.Document, 0, len(responses))
	done := 0
	for _, resp := range responses {
		done++
		tracker.Advance(ctx, done, "")
		if resp.Text == "" {
			continue
		}
		if err := h.snippets.SaveEnrichment(ctx, resp.ID, resp.Text); err != nil {
			return err
		}
		enriched = append(enriched, search.NewDocument(resp.ID, bySHA[resp.ID], resp.Text))
	}

	if h.embedder != nil && len(enriched) > 0 {
		if err := h.embedEnrichments(ctx, tracker.Step("embed"), enriched); err != nil {
			return err
		}
	}

	tracker.Complete(ctx)
	h.logger.Info("snippets enriched",
		slog.Int64("commit_id", commitID),
		slog.Int("enriched", len(enriched)),
		slog.Int("skipped", len(snips)-len(pending)),
	)
	return nil
}

// embedEnrichments stores text-kind embeddings of the new summaries under a
// child step of the enrich operation.
func (h *EnrichSnippets) embedEnrichments(ctx context.Context, step *tracking.Tracker, docs []search.Document) error {
	step.Notify(ctx)

	pending, err := missingDocuments(ctx, h.vectors, search.KindText, docs)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		step.Skip(ctx, "all summaries already embedded")
		return nil
	}
	if err := embedDocuments(ctx, h.embedder, h.vectors, h.budget, search.KindText, pending, step); err != nil {
		return err
	}
	step.Complete(ctx)
	return nil
}
