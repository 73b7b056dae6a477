package handler

import (
	"context"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
)

// EmbedSnippets computes code embeddings for a commit's snippets. Embeddings
// are keyed by content hash, so content already embedded for any commit is
// skipped.
type EmbedSnippets struct {
	snippets snippet.Store
	vectors  search.VectorStore
	embedder search.Embedder
	budget   search.TokenBudget
	trackers *TrackerFactory
	logger   *slog.Logger
}

// NewEmbedSnippets creates an EmbedSnippets handler.
func NewEmbedSnippets(
	snippets snippet.Store,
	vectors search.VectorStore,
	embedder search.Embedder,
	budget search.TokenBudget,
	trackers *TrackerFactory,
	logger *slog.Logger,
) *EmbedSnippets {
	return &EmbedSnippets{
		snippets: snippets,
		vectors:  vectors,
		embedder: embedder,
		budget:   budget,
		trackers: trackers,
		logger:   logger,
	}
}

// Execute implements service.Handler.
func (h *EmbedSnippets) Execute(ctx context.Context, payload map[string]any) error {
	commitID, err := commitIDFromPayload(payload)
	if err != nil {
		return err
	}
	snips, err := h.snippets.ForCommit(ctx, commitID)
	if err != nil {
		return err
	}

	tracker := h.trackers.Tracker(task.OperationSnippetEmbed, task.TrackableCommit, commitID)

	docs := make([]search.Document, 0, len(snips))
	seen := make(map[string]bool, len(snips))
	for _, sn := range snips {
		if seen[sn.SHA()] {
			continue
		}
		seen[sn.SHA()] = true
		docs = append(docs, search.NewDocument(sn.ID(), sn.SHA(), sn.Content()))
	}

	pending, err := missingDocuments(ctx, h.vectors, search.KindCode, docs)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		tracker.Skip(ctx, "all snippets already embedded")
		return nil
	}

	if err := embedDocuments(ctx, h.embedder, h.vectors, h.budget, search.KindCode, pending, tracker); err != nil {
		return err
	}

	tracker.Complete(ctx)
	h.logger.Info("snippets embedded",
		slog.Int64("commit_id", commitID),
		slog.Int("embedded", len(pending)),
		slog.Int("skipped", len(docs)-len(pending)),
	)
	return nil
}

// missingDocuments filters docs down to content hashes the vector store has
// no embedding of the given kind for.
func missingDocuments(ctx context.Context, vectors search.VectorStore, kind search.Kind, docs []search.Document) ([]search.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	shas := make([]string, len(docs))
	for i, d := range docs {
		shas[i] = d.SHA()
	}
	existing, err := vectors.ExistingSHAs(ctx, kind, shas)
	if err != nil {
		return nil, err
	}

	pending := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		if !existing[d.SHA()] {
			pending = append(pending, d)
		}
	}
	return pending, nil
}

// embedDocuments embeds docs in budget-sized batches and stores the vectors,
// advancing the tracker per batch.
func embedDocuments(
	ctx context.Context,
	embedder search.Embedder,
	vectors search.VectorStore,
	budget search.TokenBudget,
	kind search.Kind,
	docs []search.Document,
	tracker progressTracker,
) error {
	batches := budget.Batches(docs)
	tracker.SetTotal(ctx, len(batches))

	for i, batch := range batches {
		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = budget.Truncate(d.Text())
		}
		vecs, err := embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}

		embeddings := make([]search.Embedding, 0, len(batch))
		for j, vec := range vecs {
			if vec == nil {
				continue
			}
			embeddings = append(embeddings, search.NewEmbedding(batch[j].SHA(), kind, vec))
		}
		if err := vectors.Put(ctx, embeddings); err != nil {
			return err
		}
		tracker.Advance(ctx, i+1, "")
	}
	return nil
}

// progressTracker is the slice of tracking.Tracker the embed helpers need.
type progressTracker interface {
	SetTotal(ctx context.Context, total int)
	Advance(ctx context.Context, current int, message string)
}
