package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultHost, cfg.Host())
	assert.Equal(t, DefaultPort, cfg.Port())
	assert.Equal(t, "INFO", cfg.LogLevel())
	assert.Equal(t, "pretty", cfg.LogFormat())
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount())
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit())
	assert.Contains(t, cfg.DBURL(), "sqlite:///")
	assert.Empty(t, cfg.APITokens())
	assert.Nil(t, cfg.EmbeddingEndpoint())
}

func TestWithDataDirRebasesDBURL(t *testing.T) {
	cfg := New(WithDataDir("/tmp/kodit-test"))

	assert.Equal(t, "/tmp/kodit-test", cfg.DataDir())
	assert.Equal(t, "sqlite:///"+filepath.Join("/tmp/kodit-test", "kodit.db"), cfg.DBURL())
	assert.Equal(t, filepath.Join("/tmp/kodit-test", "clones"), cfg.CloneDir())
}

func TestWithDataDirKeepsExplicitDBURL(t *testing.T) {
	cfg := New(
		WithDBURL("postgres://localhost/kodit"),
		WithDataDir("/tmp/kodit-test"),
	)
	assert.Equal(t, "postgres://localhost/kodit", cfg.DBURL())
}

func TestAPITokensAreCopied(t *testing.T) {
	tokens := []string{"a", "b"}
	cfg := New(WithAPITokens(tokens))

	tokens[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, cfg.APITokens())

	got := cfg.APITokens()
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, cfg.APITokens())
}

func TestParseTokens(t *testing.T) {
	assert.Nil(t, ParseTokens(""))
	assert.Equal(t, []string{"one"}, ParseTokens("one"))
	assert.Equal(t, []string{"one", "two"}, ParseTokens(" one , two ,"))
}

func TestEndpointDefaults(t *testing.T) {
	e := NewEndpoint(WithModel("text-embedding-3-small"))

	assert.True(t, e.IsConfigured())
	assert.Equal(t, DefaultEndpointTimeout, e.Timeout())
	assert.Equal(t, DefaultEndpointMaxRetries, e.MaxRetries())
	assert.Equal(t, DefaultEndpointParallelTasks, e.NumParallelTasks())
	assert.Equal(t, DefaultEndpointMaxTokens, e.MaxTokens())

	assert.False(t, NewEndpoint().IsConfigured())
	assert.False(t, (*Endpoint)(nil).IsConfiguredPtr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/kodit-env")
	t.Setenv("API_TOKENS", "tok1,tok2")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "http://localhost:11434/v1")

	cfg, err := Load("does-not-exist.env", "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/kodit-env", cfg.DataDir())
	assert.Equal(t, []string{"tok1", "tok2"}, cfg.APITokens())
	assert.Equal(t, 4, cfg.WorkerCount())
	require.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint().Model())
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingEndpoint().BaseURL())
	assert.Nil(t, cfg.EnrichmentEndpoint())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kodit.yaml")
	content := []byte(`
host: 127.0.0.1
port: 9999
search_limit: 25
sync_interval_seconds: 60
api_tokens:
  - secret
enrichment_endpoint:
  model: gpt-4o-mini
  base_url: https://api.openai.com/v1
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	opts, err := LoadFile(path)
	require.NoError(t, err)
	cfg := New(opts...)

	assert.Equal(t, "127.0.0.1:9999", cfg.Addr())
	assert.Equal(t, 25, cfg.SearchLimit())
	assert.Equal(t, time.Minute, cfg.SyncInterval())
	assert.Equal(t, []string{"secret"}, cfg.APITokens())
	require.NotNil(t, cfg.EnrichmentEndpoint())
	assert.Equal(t, "gpt-4o-mini", cfg.EnrichmentEndpoint().Model())
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
