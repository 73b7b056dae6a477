package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file schema. Every field is optional;
// environment variables take precedence over file values.
type FileConfig struct {
	Host             string  `yaml:"host"`
	Port             int     `yaml:"port"`
	DataDir          string  `yaml:"data_dir"`
	DBURL            string  `yaml:"db_url"`
	LogLevel         string  `yaml:"log_level"`
	LogFormat        string  `yaml:"log_format"`
	DisableTelemetry *bool   `yaml:"disable_telemetry"`
	APITokens        []string `yaml:"api_tokens"`
	WorkerCount      int     `yaml:"worker_count"`
	SearchLimit      int     `yaml:"search_limit"`
	SyncInterval     float64 `yaml:"sync_interval_seconds"`

	EmbeddingEndpoint  *EndpointFile `yaml:"embedding_endpoint"`
	EnrichmentEndpoint *EndpointFile `yaml:"enrichment_endpoint"`
}

// EndpointFile is the YAML schema of one endpoint block.
type EndpointFile struct {
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	APIKey           string  `yaml:"api_key"`
	SocketPath       string  `yaml:"socket_path"`
	NumParallelTasks int     `yaml:"num_parallel_tasks"`
	Timeout          float64 `yaml:"timeout_seconds"`
	MaxRetries       int     `yaml:"max_retries"`
	MaxTokens        int     `yaml:"max_tokens"`
	MaxBatchChars    int     `yaml:"max_batch_chars"`
}

func (f EndpointFile) toEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(f.Model),
		WithBaseURL(f.BaseURL),
		WithAPIKey(f.APIKey),
		WithSocketPath(f.SocketPath),
		WithNumParallelTasks(f.NumParallelTasks),
		WithMaxRetries(f.MaxRetries),
		WithMaxTokens(f.MaxTokens),
		WithMaxBatchChars(f.MaxBatchChars),
	}
	if f.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(f.Timeout*float64(time.Second))))
	}
	return NewEndpoint(opts...)
}

// LoadFile parses a YAML config file into AppConfig options.
func LoadFile(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	var opts []Option
	if fc.Host != "" {
		opts = append(opts, WithHost(fc.Host))
	}
	if fc.Port != 0 {
		opts = append(opts, WithPort(fc.Port))
	}
	if fc.DataDir != "" {
		opts = append(opts, WithDataDir(fc.DataDir))
	}
	if fc.DBURL != "" {
		opts = append(opts, WithDBURL(fc.DBURL))
	}
	if fc.LogLevel != "" {
		opts = append(opts, WithLogLevel(fc.LogLevel))
	}
	if fc.LogFormat != "" {
		opts = append(opts, WithLogFormat(fc.LogFormat))
	}
	if fc.DisableTelemetry != nil {
		opts = append(opts, WithDisableTelemetry(*fc.DisableTelemetry))
	}
	if len(fc.APITokens) > 0 {
		opts = append(opts, WithAPITokens(fc.APITokens))
	}
	if fc.WorkerCount > 0 {
		opts = append(opts, WithWorkerCount(fc.WorkerCount))
	}
	if fc.SearchLimit > 0 {
		opts = append(opts, WithSearchLimit(fc.SearchLimit))
	}
	if fc.SyncInterval > 0 {
		opts = append(opts, WithSyncInterval(time.Duration(fc.SyncInterval*float64(time.Second))))
	}
	if fc.EmbeddingEndpoint != nil && fc.EmbeddingEndpoint.Model != "" {
		opts = append(opts, WithEmbeddingEndpoint(fc.EmbeddingEndpoint.toEndpoint()))
	}
	if fc.EnrichmentEndpoint != nil && fc.EnrichmentEndpoint.Model != "" {
		opts = append(opts, WithEnrichmentEndpoint(fc.EnrichmentEndpoint.toEndpoint()))
	}
	return opts, nil
}
