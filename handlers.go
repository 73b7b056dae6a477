package kodit

import (
	"log/slog"

	"github.com/kodit-ai/kodit/application/handler"
	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/enricher"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/provider"
	"github.com/kodit-ai/kodit/infrastructure/slicing"
)

// enrichmentSettings carries the enrichment endpoint limits into handler
// construction.
type enrichmentSettings struct {
	parallelism int
	budget      search.TokenBudget
}

// handlerDeps bundles everything the task handlers need.
type handlerDeps struct {
	repos       repository.Store
	commits     repository.CommitStore
	refs        repository.RefStore
	files       repository.FileStore
	snippets    snippet.Store
	vectors     search.VectorStore
	keyword     search.KeywordIndex
	cloner      *git.RepositoryCloner
	scanner     *git.RepositoryScanner
	slicer      *slicing.Slicer
	queue       *service.Queue
	trackers    *handler.TrackerFactory
	embedder    search.Embedder
	generator   provider.TextGenerator
	embedBudget search.TokenBudget
	enrichment  enrichmentSettings
	logger      *slog.Logger
}

// registerHandlers binds every queue operation to its handler. The embed and
// enrich handlers are only registered when their provider is configured; the
// extraction handler then skips enqueueing those stages.
func registerHandlers(registry *service.Registry, d handlerDeps) {
	embedConfigured := d.embedder != nil
	enrichConfigured := d.generator != nil

	registry.Register(task.OperationRepositoryIndex, handler.NewIndexRepository(
		d.repos, d.commits, d.refs, d.cloner, d.scanner, d.queue, d.trackers, d.logger,
	))

	registry.Register(task.OperationCommitExtract, handler.NewExtractCommit(
		d.repos, d.commits, d.files, d.snippets, d.scanner, d.slicer, d.keyword,
		d.queue, d.trackers, embedConfigured, enrichConfigured, d.logger,
	))

	if embedConfigured {
		registry.Register(task.OperationSnippetEmbed, handler.NewEmbedSnippets(
			d.snippets, d.vectors, d.embedder, d.embedBudget, d.trackers, d.logger,
		))
	}

	if enrichConfigured {
		providerEnricher := enricher.NewProviderEnricher(d.generator, d.enrichment.parallelism, d.logger)
		registry.Register(task.OperationSnippetEnrich, handler.NewEnrichSnippets(
			d.snippets, d.vectors, d.embedder, providerEnricher, d.enrichment.budget, d.trackers, d.logger,
		))
	}
}
