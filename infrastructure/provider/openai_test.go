package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/internal/config"
)

func testEndpoint(baseURL string, opts ...config.EndpointOption) config.Endpoint {
	base := []config.EndpointOption{
		config.WithBaseURL(baseURL),
		config.WithModel("test-model"),
		config.WithAPIKey("test-key"),
		config.WithInitialDelay(time.Millisecond),
	}
	return config.NewEndpoint(append(base, opts...)...)
}

func decodeEmbeddingInput(r *http.Request) []string {
	var body struct {
		Input any    `json:"input"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil
	}
	switch v := body.Input.(type) {
	case string:
		return []string{v}
	case []any:
		texts := make([]string, 0, len(v))
		for _, item := range v {
			texts = append(texts, item.(string))
		}
		return texts
	}
	return nil
}

func writeEmbeddingResponse(w http.ResponseWriter, texts []string) {
	data := make([]map[string]any, len(texts))
	for i := range texts {
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": []float64{0.1, 0.2, 0.3},
		}
	}
	resp := map[string]any{
		"object": "list",
		"data":   data,
		"model":  "test-model",
		"usage":  map[string]int{"prompt_tokens": len(texts) * 4, "total_tokens": len(texts) * 4},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func embeddingServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeEmbeddingResponse(w, decodeEmbeddingInput(r))
	}))
}

func TestEmbedPreservesOrderAndSkipsEmptyTexts(t *testing.T) {
	var requests atomic.Int64
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL))
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"hello", "", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 3)
	assert.Nil(t, vectors[1])
	assert.Len(t, vectors[2], 3)
	assert.Equal(t, int64(1), requests.Load())
}

func TestEmbedAllEmptyMakesNoRequest(t *testing.T) {
	var requests atomic.Int64
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL))
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"", ""})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{nil, nil}, vectors)
	assert.Equal(t, int64(0), requests.Load())
}

func TestEmbedRetriesPartialResponses(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		texts := decodeEmbeddingInput(r)
		if n <= 2 {
			// Partial response: fewer vectors than texts.
			writeEmbeddingResponse(w, texts[:len(texts)-1])
			return
		}
		writeEmbeddingResponse(w, texts)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL, config.WithMaxRetries(3)))
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, int64(3), requests.Load())
}

func TestEmbedUpstreamFailureIsNotRetried(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		// HTTP 200 with no data, no model and zero usage.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []any{},
			"model":  "",
			"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL, config.WithMaxRetries(5)))
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"hello"})
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, int64(1), requests.Load())
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if n == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		writeEmbeddingResponse(w, decodeEmbeddingInput(r))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL, config.WithMaxRetries(2)))
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int64(2), requests.Load())
}

func TestEmbedCancelledContext(t *testing.T) {
	var requests atomic.Int64
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Embed(ctx, []string{"hello"})
	require.Error(t, err)
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "a summary"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL))
	require.NoError(t, err)

	text, err := p.GenerateText(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "a summary", text)
}

func TestGenerateTextNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []any{},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = p.GenerateText(context.Background(), "system", "user")
	require.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestNewOpenAIProviderUnconfigured(t *testing.T) {
	_, err := NewOpenAIProvider(config.NewEndpoint())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"count mismatch", errEmbeddingCountMismatch, true},
		{"upstream failure", ErrUpstreamFailure, false},
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"bad gateway", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"request error", &openai.RequestError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"plain error", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, isRetryable(tc.err))
		})
	}
}
