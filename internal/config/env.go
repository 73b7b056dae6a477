package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvConfig maps environment variables onto configuration values. Endpoint
// blocks use an underscore-delimited prefix, e.g. EMBEDDING_ENDPOINT_BASE_URL.
type EnvConfig struct {
	Host             string  `envconfig:"HOST" default:"0.0.0.0"`
	Port             int     `envconfig:"PORT" default:"8080"`
	DataDir          string  `envconfig:"DATA_DIR"`
	DBURL            string  `envconfig:"DB_URL"`
	LogLevel         string  `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFormat        string  `envconfig:"LOG_FORMAT" default:"pretty"`
	DisableTelemetry bool    `envconfig:"DISABLE_TELEMETRY" default:"false"`
	APITokens        string  `envconfig:"API_TOKENS"`
	WorkerCount      int     `envconfig:"WORKER_COUNT" default:"1"`
	SearchLimit      int     `envconfig:"SEARCH_LIMIT" default:"10"`
	SyncInterval     float64 `envconfig:"SYNC_INTERVAL_SECONDS" default:"1800"`

	EmbeddingEndpoint  EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`
	EnrichmentEndpoint EndpointEnv `envconfig:"ENRICHMENT_ENDPOINT"`
}

// EndpointEnv maps one endpoint's environment block.
type EndpointEnv struct {
	BaseURL          string  `envconfig:"BASE_URL"`
	Model            string  `envconfig:"MODEL"`
	APIKey           string  `envconfig:"API_KEY"`
	SocketPath       string  `envconfig:"SOCKET_PATH"`
	NumParallelTasks int     `envconfig:"NUM_PARALLEL_TASKS" default:"20"`
	Timeout          float64 `envconfig:"TIMEOUT" default:"60"`
	MaxRetries       int     `envconfig:"MAX_RETRIES" default:"5"`
	InitialDelay     float64 `envconfig:"INITIAL_DELAY" default:"2.0"`
	BackoffFactor    float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
	MaxTokens        int     `envconfig:"MAX_TOKENS" default:"8192"`
	MaxBatchChars    int     `envconfig:"MAX_BATCH_CHARS" default:"16000"`
}

// IsConfigured reports whether the endpoint block names a model.
func (e EndpointEnv) IsConfigured() bool { return e.Model != "" }

// ToEndpoint converts an environment block into an Endpoint value.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithNumParallelTasks(e.NumParallelTasks),
		WithTimeout(seconds(e.Timeout)),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(seconds(e.InitialDelay)),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxTokens(e.MaxTokens),
		WithMaxBatchChars(e.MaxBatchChars),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	if e.SocketPath != "" {
		opts = append(opts, WithSocketPath(e.SocketPath))
	}
	return NewEndpoint(opts...)
}

// ToOptions converts the environment snapshot into AppConfig options.
func (e EnvConfig) ToOptions() []Option {
	opts := []Option{
		WithHost(e.Host),
		WithPort(e.Port),
		WithLogLevel(e.LogLevel),
		WithLogFormat(e.LogFormat),
		WithDisableTelemetry(e.DisableTelemetry),
		WithWorkerCount(e.WorkerCount),
		WithSearchLimit(e.SearchLimit),
		WithSyncInterval(seconds(e.SyncInterval)),
	}
	if e.DataDir != "" {
		opts = append(opts, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		opts = append(opts, WithDBURL(e.DBURL))
	}
	if e.APITokens != "" {
		opts = append(opts, WithAPITokens(ParseTokens(e.APITokens)))
	}
	if e.EmbeddingEndpoint.IsConfigured() {
		opts = append(opts, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}
	if e.EnrichmentEndpoint.IsConfigured() {
		opts = append(opts, WithEnrichmentEndpoint(e.EnrichmentEndpoint.ToEndpoint()))
	}
	return opts
}

// Load builds the AppConfig from, in increasing precedence: defaults, an
// optional YAML file, an optional .env file, and process environment
// variables.
func Load(envFile, configFile string) (AppConfig, error) {
	if err := loadDotEnv(envFile); err != nil {
		return AppConfig{}, err
	}

	var opts []Option
	if configFile != "" {
		fileOpts, err := LoadFile(configFile)
		if err != nil {
			return AppConfig{}, err
		}
		opts = append(opts, fileOpts...)
	}

	var env EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts = append(opts, env.ToOptions()...)

	return New(opts...), nil
}

// loadDotEnv loads a .env file when present. A missing file is not an error;
// existing process variables are never overridden.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: load %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
