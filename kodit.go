// Package kodit wires stores, services, task handlers and background workers
// into one runnable application.
//
// Basic usage:
//
//	app, err := kodit.New(ctx, kodit.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.Start(ctx)
//	defer app.Close()
//
//	repo, err := app.Repositories.Track(ctx, "https://github.com/golang/go", repository.TrackingConfig{})
//	matches, err := app.Search.Query(ctx, service.SearchRequest{Query: "parse flags"})
package kodit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kodit-ai/kodit/application/handler"
	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/persistence"
	"github.com/kodit-ai/kodit/infrastructure/provider"
	infrasearch "github.com/kodit-ai/kodit/infrastructure/search"
	"github.com/kodit-ai/kodit/infrastructure/slicing"
	"github.com/kodit-ai/kodit/infrastructure/tracking"
	"github.com/kodit-ai/kodit/internal/config"
	"github.com/kodit-ai/kodit/internal/database"
)

// ErrAppClosed indicates a call on an App after Close.
var ErrAppClosed = errors.New("app closed")

// App is the assembled application: persistence, indexing pipeline, queue
// worker and retrieval, sharing one database connection.
//
// Access services via struct fields:
//
//	app.Repositories.Track(ctx, uri, tc)
//	app.Search.Query(ctx, req)
//	app.Queue.PendingCounts(ctx)
type App struct {
	Repositories *service.RepositoryService
	Search       *service.Search
	Queue        *service.Queue
	Statuses     *persistence.StatusStore

	cfg          config.AppConfig
	db           database.Database
	tasks        *persistence.TaskStore
	workers      []*service.Worker
	periodicSync *service.PeriodicSync
	registry     *service.Registry
	closers      []io.Closer
	logger       *slog.Logger
	closed       atomic.Bool
}

// New builds the App from configuration: opens the database, runs
// migrations, warms the keyword index from persisted snippets and registers
// the task handlers. Call Start to run the background loops.
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := newAppOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.cfg

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.Migrate(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	repos := persistence.NewRepositoryStore(db)
	commits := persistence.NewCommitStore(db)
	refs := persistence.NewRefStore(db)
	files := persistence.NewFileStore(db)
	snippets := persistence.NewSnippetStore(db)
	tasks := persistence.NewTaskStore(db)
	statuses := persistence.NewStatusStore(db)

	keyword := infrasearch.NewBM25Index()
	vectors := infrasearch.NewVectorStore(db)

	if err := warmKeywordIndex(ctx, repos, commits, snippets, keyword, logger); err != nil {
		return nil, errors.Join(fmt.Errorf("warm keyword index: %w", err), db.Close())
	}

	embedder, embedBudget, err := buildEmbedder(o, cfg)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	generator, enrichment, err := buildGenerator(o, cfg)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	adapter := o.adapter
	if adapter == nil {
		adapter = git.NewGoGitAdapter(logger)
	}
	cloner := git.NewRepositoryCloner(adapter, cfg.CloneDir(), logger)
	scanner := git.NewRepositoryScanner(adapter, logger)
	slicer := slicing.NewSlicer()

	// Status changes flow to the database and the log, each throttled so a
	// busy extraction does not write a row per file.
	dbReporter := tracking.NewCooldown(tracking.NewPersistingReporter(statuses), cfg.ReportingInterval())
	logReporter := tracking.NewCooldown(tracking.NewLoggingReporter(logger), cfg.ReportingInterval())
	trackers := handler.NewTrackerFactory(logger, dbReporter, logReporter)

	queue := service.NewQueue(tasks, logger)
	registry := service.NewRegistry()

	// Claim-by-delete dequeue keeps concurrent workers from sharing a task.
	workerCount := cfg.WorkerCount()
	if workerCount < 1 {
		workerCount = 1
	}
	workers := make([]*service.Worker, workerCount)
	for i := range workers {
		workers[i] = service.NewWorker(tasks, registry, trackers, logger)
		if o.pollPeriod > 0 {
			workers[i].WithPollPeriod(o.pollPeriod)
		}
	}

	registerHandlers(registry, handlerDeps{
		repos:       repos,
		commits:     commits,
		refs:        refs,
		files:       files,
		snippets:    snippets,
		vectors:     vectors,
		keyword:     keyword,
		cloner:      cloner,
		scanner:     scanner,
		slicer:      slicer,
		queue:       queue,
		trackers:    trackers,
		embedder:    embedder,
		generator:   generator,
		embedBudget: embedBudget,
		enrichment:  enrichment,
		logger:      logger,
	})

	return &App{
		Repositories: service.NewRepositoryService(repos, commits, snippets, vectors, keyword, cloner, adapter, queue, logger),
		Search:       service.NewSearch(repos, commits, snippets, keyword, vectors, embedder, logger).WithDefaultLimit(cfg.SearchLimit()),
		Queue:        queue,
		Statuses:     statuses,
		cfg:          cfg,
		db:           db,
		tasks:        tasks,
		workers:      workers,
		periodicSync: service.NewPeriodicSync(repos, queue, cfg.SyncInterval(), logger),
		registry:     registry,
		closers:      []io.Closer{dbReporter, logReporter},
		logger:       logger,
	}, nil
}

// Start runs the queue workers and the periodic sync loop.
func (a *App) Start(ctx context.Context) {
	for _, worker := range a.workers {
		worker.Start(ctx)
	}
	a.periodicSync.Start(ctx)
}

// Close stops the background loops, flushes pending status reports and
// closes the database.
func (a *App) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrAppClosed
	}

	a.periodicSync.Stop()
	for _, worker := range a.workers {
		worker.Stop()
	}

	for _, closer := range a.closers {
		if err := closer.Close(); err != nil {
			a.logger.Error("close resource", slog.Any("error", err))
		}
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	a.logger.Info("kodit closed")
	return nil
}

// QueueIdle reports whether no tasks are pending or in flight.
func (a *App) QueueIdle(ctx context.Context) bool {
	for _, worker := range a.workers {
		if worker.Busy() {
			return false
		}
	}
	count, err := a.tasks.Count(ctx)
	return err == nil && count == 0
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the configuration the App was built with.
func (a *App) Config() config.AppConfig { return a.cfg }

// warmKeywordIndex rebuilds the in-process BM25 corpus from persisted
// snippets so keyword retrieval works immediately after a restart.
func warmKeywordIndex(
	ctx context.Context,
	repos repository.Store,
	commits repository.CommitStore,
	snippets snippet.Store,
	keyword search.KeywordIndex,
	logger *slog.Logger,
) error {
	all, err := repos.Find(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	total := 0
	for _, repo := range all {
		repoCommits, err := commits.Find(ctx, database.Where("repo_id", repo.ID()))
		if err != nil {
			return err
		}
		commitIDs := make([]int64, len(repoCommits))
		for i, c := range repoCommits {
			commitIDs[i] = c.ID()
		}

		snips, err := snippets.Find(ctx, database.WhereIn("commit_id", commitIDs))
		if err != nil {
			return err
		}
		docs := make([]search.Document, 0, len(snips))
		for _, sn := range snips {
			docs = append(docs, search.NewDocument(sn.ID(), sn.SHA(), sn.Content()))
		}
		if err := keyword.Rebuild(ctx, repo.ID(), docs); err != nil {
			return err
		}
		total += len(docs)
	}

	if total > 0 {
		logger.Info("keyword index warmed",
			slog.Int("repositories", len(all)),
			slog.Int("snippets", total),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// buildEmbedder resolves the embedder: an explicit override wins, then the
// configured embedding endpoint, then none. The token budget follows the
// endpoint's batch limits.
func buildEmbedder(o *appOptions, cfg config.AppConfig) (search.Embedder, search.TokenBudget, error) {
	budget := search.DefaultTokenBudget()
	endpoint := cfg.EmbeddingEndpoint()
	if endpoint != nil {
		b, err := search.NewTokenBudget(endpoint.MaxBatchChars())
		if err != nil {
			return nil, search.TokenBudget{}, fmt.Errorf("embedding endpoint: %w", err)
		}
		budget = b
	}

	if o.embedder != nil {
		return o.embedder, budget, nil
	}
	if endpoint == nil {
		return nil, budget, nil
	}

	embedder, err := provider.NewOpenAIProvider(*endpoint)
	if err != nil {
		return nil, search.TokenBudget{}, fmt.Errorf("embedding endpoint: %w", err)
	}
	return embedder, budget, nil
}

// buildGenerator resolves the enrichment text generator the same way.
func buildGenerator(o *appOptions, cfg config.AppConfig) (provider.TextGenerator, enrichmentSettings, error) {
	settings := enrichmentSettings{
		parallelism: config.DefaultEndpointParallelTasks,
		budget:      search.DefaultTokenBudget(),
	}
	endpoint := cfg.EnrichmentEndpoint()
	if endpoint != nil {
		b, err := search.NewTokenBudget(endpoint.MaxBatchChars())
		if err != nil {
			return nil, enrichmentSettings{}, fmt.Errorf("enrichment endpoint: %w", err)
		}
		settings = enrichmentSettings{parallelism: endpoint.NumParallelTasks(), budget: b}
	}

	if o.generator != nil {
		return o.generator, settings, nil
	}
	if endpoint == nil {
		return nil, settings, nil
	}

	generator, err := provider.NewOpenAIProvider(*endpoint)
	if err != nil {
		return nil, enrichmentSettings{}, fmt.Errorf("enrichment endpoint: %w", err)
	}
	return generator, settings, nil
}
