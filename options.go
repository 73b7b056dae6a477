package kodit

import (
	"log/slog"
	"time"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/provider"
	"github.com/kodit-ai/kodit/internal/config"
)

// Option configures the App under construction.
type Option func(*appOptions)

type appOptions struct {
	cfg        config.AppConfig
	logger     *slog.Logger
	adapter    git.Adapter
	embedder   search.Embedder
	generator  provider.TextGenerator
	pollPeriod time.Duration
}

func newAppOptions() *appOptions {
	return &appOptions{cfg: config.New()}
}

// WithConfig sets the application configuration. Without it defaults apply.
func WithConfig(cfg config.AppConfig) Option {
	return func(o *appOptions) { o.cfg = cfg }
}

// WithLogger sets the logger. Without it the process default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) { o.logger = logger }
}

// WithGitAdapter replaces the go-git adapter. Tests use this to index
// synthetic repositories without touching the network.
func WithGitAdapter(adapter git.Adapter) Option {
	return func(o *appOptions) { o.adapter = adapter }
}

// WithEmbedder replaces the embedder built from the embedding endpoint
// configuration.
func WithEmbedder(embedder search.Embedder) Option {
	return func(o *appOptions) { o.embedder = embedder }
}

// WithTextGenerator replaces the generator built from the enrichment
// endpoint configuration.
func WithTextGenerator(generator provider.TextGenerator) Option {
	return func(o *appOptions) { o.generator = generator }
}

// WithWorkerPollPeriod sets how often an idle worker checks the queue.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(o *appOptions) { o.pollPeriod = d }
}
