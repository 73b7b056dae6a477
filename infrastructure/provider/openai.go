package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/internal/config"
)

// OpenAIProvider talks to one OpenAI-compatible endpoint. The same type
// serves both embedding and enrichment endpoints; which operations make
// sense depends on the model the endpoint names.
type OpenAIProvider struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

var (
	_ search.Embedder = (*OpenAIProvider)(nil)
	_ TextGenerator   = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider creates a provider from endpoint configuration.
func NewOpenAIProvider(endpoint config.Endpoint) (*OpenAIProvider, error) {
	if !endpoint.IsConfigured() {
		return nil, ErrNotConfigured
	}

	cfg := openai.DefaultConfig(endpoint.APIKey())
	if endpoint.BaseURL() != "" {
		cfg.BaseURL = endpoint.BaseURL()
	}

	httpClient := &http.Client{Timeout: endpoint.Timeout()}
	if socket := endpoint.SocketPath(); socket != "" {
		httpClient.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
	}
	cfg.HTTPClient = httpClient

	return &OpenAIProvider{
		client:        openai.NewClientWithConfig(cfg),
		model:         endpoint.Model(),
		maxRetries:    endpoint.MaxRetries(),
		initialDelay:  endpoint.InitialDelay(),
		backoffFactor: endpoint.BackoffFactor(),
	}, nil
}

// Embed returns one vector per text, preserving order. Empty texts are not
// sent to the API and come back as nil vectors.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))

	input := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		input = append(input, text)
		positions = append(positions, i)
	}
	if len(input) == 0 {
		return vectors, nil
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(p.model),
			Input: input,
		})
		if callErr != nil {
			return callErr
		}
		// Routing providers return HTTP 200 with an error body that the
		// client library parses as an empty response. Zero data with zero
		// usage and no model means the upstream is down, not overloaded.
		if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
			return fmt.Errorf("%w: empty embedding response with no model and zero usage", ErrUpstreamFailure)
		}
		if len(resp.Data) != len(input) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(input))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	for i, data := range resp.Data {
		vec := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float64(v)
		}
		vectors[positions[i]] = vec
	}
	return vectors, nil
}

// GenerateText returns the completion for a system/user prompt pair.
func (p *OpenAIProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if callErr != nil {
			return callErr
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: completion response has no choices", ErrUpstreamFailure)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	return resp.Choices[0].Message.Content, nil
}

// withRetry runs fn with exponential backoff until it succeeds, fails with a
// non-retryable error, or the retry budget runs out.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrUpstreamFailure) {
		return false
	}
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
