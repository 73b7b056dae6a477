// Package config holds immutable application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidConfig marks configuration problems that are fatal at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults applied when neither environment nor config file set a value.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultWorkerCount           = 1
	DefaultSearchLimit           = 10
	DefaultCloneSubdir           = "clones"
	DefaultBM25Subdir            = "bm25s_index"
	DefaultSyncInterval          = 30 * time.Minute
	DefaultReportingInterval     = 5 * time.Second
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoff       = 2.0
	DefaultEndpointParallelTasks = 20
	DefaultEndpointMaxTokens     = 8192
	DefaultEndpointBatchChars    = 16000
)

// Endpoint configures one OpenAI-compatible service (embedding or enrichment).
type Endpoint struct {
	baseURL          string
	model            string
	apiKey           string
	socketPath       string
	numParallelTasks int
	timeout          time.Duration
	maxRetries       int
	initialDelay     time.Duration
	backoffFactor    float64
	maxTokens        int
	maxBatchChars    int
}

// NewEndpoint creates an Endpoint with defaults applied.
func NewEndpoint(opts ...EndpointOption) Endpoint {
	e := Endpoint{
		numParallelTasks: DefaultEndpointParallelTasks,
		timeout:          DefaultEndpointTimeout,
		maxRetries:       DefaultEndpointMaxRetries,
		initialDelay:     DefaultEndpointInitialDelay,
		backoffFactor:    DefaultEndpointBackoff,
		maxTokens:        DefaultEndpointMaxTokens,
		maxBatchChars:    DefaultEndpointBatchChars,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// BaseURL returns the endpoint base URL.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// SocketPath returns the optional Unix socket path.
func (e Endpoint) SocketPath() string { return e.socketPath }

// NumParallelTasks returns the bounded parallelism for this endpoint.
func (e Endpoint) NumParallelTasks() int { return e.numParallelTasks }

// Timeout returns the per-request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the retry budget for provider calls.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the first retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry delay multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxTokens returns the token budget per provider batch.
func (e Endpoint) MaxTokens() int { return e.maxTokens }

// MaxBatchChars returns the character budget per provider batch.
func (e Endpoint) MaxBatchChars() int { return e.maxBatchChars }

// IsConfigured reports whether the endpoint names a model.
func (e Endpoint) IsConfigured() bool { return e.model != "" }

// EndpointOption mutates an Endpoint under construction.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model identifier.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithSocketPath sets a Unix socket path for local providers.
func WithSocketPath(path string) EndpointOption {
	return func(e *Endpoint) { e.socketPath = path }
}

// WithNumParallelTasks bounds endpoint parallelism.
func WithNumParallelTasks(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.numParallelTasks = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the provider retry budget.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the first retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry delay multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxTokens sets the token budget per batch.
func WithMaxTokens(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithMaxBatchChars sets the character budget per batch.
func WithMaxBatchChars(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxBatchChars = n
		}
	}
}

// AppConfig is the immutable top-level configuration.
type AppConfig struct {
	host               string
	port               int
	dataDir            string
	dbURL              string
	logLevel           string
	logFormat          string
	disableTelemetry   bool
	apiTokens          []string
	embeddingEndpoint  *Endpoint
	enrichmentEndpoint *Endpoint
	syncInterval       time.Duration
	reportingInterval  time.Duration
	workerCount        int
	searchLimit        int
}

// DefaultDataDir returns ~/.kodit, or ./.kodit when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kodit"
	}
	return filepath.Join(home, ".kodit")
}

// New creates an AppConfig with defaults, then applies opts.
func New(opts ...Option) AppConfig {
	dataDir := DefaultDataDir()
	c := AppConfig{
		host:              DefaultHost,
		port:              DefaultPort,
		dataDir:           dataDir,
		dbURL:             "sqlite:///" + filepath.Join(dataDir, "kodit.db"),
		logLevel:          DefaultLogLevel,
		logFormat:         "pretty",
		syncInterval:      DefaultSyncInterval,
		reportingInterval: DefaultReportingInterval,
		workerCount:       DefaultWorkerCount,
		searchLimit:       DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Host returns the bind host.
func (c AppConfig) Host() string { return c.host }

// Port returns the listen port.
func (c AppConfig) Port() int { return c.port }

// Addr returns host:port.
func (c AppConfig) Addr() string { return fmt.Sprintf("%s:%d", c.host, c.port) }

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// CloneDir returns the directory holding cloned repositories.
func (c AppConfig) CloneDir() string { return filepath.Join(c.dataDir, DefaultCloneSubdir) }

// BM25Dir returns the on-disk location for serialised keyword indices.
func (c AppConfig) BM25Dir() string { return filepath.Join(c.dataDir, DefaultBM25Subdir) }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level name.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format name (pretty or json).
func (c AppConfig) LogFormat() string { return c.logFormat }

// DisableTelemetry reports whether telemetry is disabled.
func (c AppConfig) DisableTelemetry() bool { return c.disableTelemetry }

// APITokens returns a copy of the configured bearer tokens.
func (c AppConfig) APITokens() []string {
	tokens := make([]string, len(c.apiTokens))
	copy(tokens, c.apiTokens)
	return tokens
}

// EmbeddingEndpoint returns the embedding endpoint, nil when unconfigured.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// EnrichmentEndpoint returns the enrichment endpoint, nil when unconfigured.
func (c AppConfig) EnrichmentEndpoint() *Endpoint { return c.enrichmentEndpoint }

// SyncInterval returns the periodic re-index interval; zero disables it.
func (c AppConfig) SyncInterval() time.Duration { return c.syncInterval }

// ReportingInterval returns the progress-log throttle interval.
func (c AppConfig) ReportingInterval() time.Duration { return c.reportingInterval }

// WorkerCount returns the number of queue workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// EnsureDirs creates the data and clone directories.
func (c AppConfig) EnsureDirs() error {
	for _, dir := range []string{c.dataDir, c.CloneDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// LogAttrs returns loggable attributes with secrets masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", maskDBURL(c.dbURL)),
		slog.String("log_level", c.logLevel),
		slog.Int("api_tokens", len(c.apiTokens)),
		slog.Bool("embedding_configured", c.embeddingEndpoint.IsConfiguredPtr()),
		slog.Bool("enrichment_configured", c.enrichmentEndpoint.IsConfiguredPtr()),
		slog.Int("worker_count", c.workerCount),
		slog.Duration("sync_interval", c.syncInterval),
	}
}

// IsConfiguredPtr is IsConfigured lifted over a nil receiver pointer.
func (e *Endpoint) IsConfiguredPtr() bool {
	return e != nil && e.IsConfigured()
}

func maskDBURL(url string) string {
	if strings.HasPrefix(url, "sqlite:") {
		return url
	}
	return "postgres://***"
}

// Apply returns a copy of the configuration with opts applied. Command-line
// flag overrides use this after Load.
func (c AppConfig) Apply(opts ...Option) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Option mutates an AppConfig under construction.
type Option func(*AppConfig)

// WithHost sets the bind host.
func WithHost(host string) Option {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory and rebases the default database URL.
func WithDataDir(dir string) Option {
	return func(c *AppConfig) {
		c.dataDir = dir
		if strings.Contains(c.dbURL, "kodit.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "kodit.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) Option {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level name.
func WithLogLevel(level string) Option {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format name.
func WithLogFormat(format string) Option {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithDisableTelemetry toggles telemetry.
func WithDisableTelemetry(disabled bool) Option {
	return func(c *AppConfig) { c.disableTelemetry = disabled }
}

// WithAPITokens sets the accepted bearer tokens.
func WithAPITokens(tokens []string) Option {
	return func(c *AppConfig) {
		c.apiTokens = make([]string, len(tokens))
		copy(c.apiTokens, tokens)
	}
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) Option {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithEnrichmentEndpoint sets the enrichment endpoint.
func WithEnrichmentEndpoint(e Endpoint) Option {
	return func(c *AppConfig) { c.enrichmentEndpoint = &e }
}

// WithSyncInterval sets the periodic re-index interval; zero disables it.
func WithSyncInterval(d time.Duration) Option {
	return func(c *AppConfig) { c.syncInterval = d }
}

// WithReportingInterval sets the progress-log throttle interval.
func WithReportingInterval(d time.Duration) Option {
	return func(c *AppConfig) { c.reportingInterval = d }
}

// WithWorkerCount sets the queue worker count.
func WithWorkerCount(n int) Option {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) Option {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// ParseTokens splits a comma-separated token list, dropping empty entries.
func ParseTokens(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
