package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
)

type stubSearcher struct {
	gotQuery string
	matches  []service.Match
	err      error
}

func (s *stubSearcher) Query(_ context.Context, request service.SearchRequest) ([]service.Match, error) {
	s.gotQuery = request.Query
	return s.matches, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = "retrieve_relevant_snippets"
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestExpandQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		paths    []string
		contents []string
		want     string
	}{
		{
			name:  "query alone",
			query: "parse flags",
			want:  "parse flags",
		},
		{
			name:  "file base names without extension",
			query: "retry logic",
			paths: []string{"internal/queue/worker.go", "handler.py"},
			want:  "retry logic worker handler",
		},
		{
			name:     "contents appended",
			query:    "greet",
			contents: []string{"def greet():"},
			want:     "greet def greet():",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandQuery(tt.query, tt.paths, tt.contents))
		})
	}
}

func TestExpandQueryTruncatesLongContents(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := expandQuery("q", nil, []string{long})
	assert.Equal(t, "q "+long[:200], got)
}

func TestFormatMatchesEmpty(t *testing.T) {
	assert.Equal(t, "No relevant snippets found.", formatMatches(nil))
}

func TestFormatMatches(t *testing.T) {
	plain := snippet.New(1, "src/app.py", snippet.LanguagePython, "def greet():\n    pass\n")
	enriched := snippet.New(1, "src/util.py", snippet.LanguagePython, "def farewell():\n    pass").
		WithEnrichment("Says goodbye.")

	got := formatMatches([]service.Match{
		service.NewMatch(plain, 0.5, map[search.Method]float64{search.MethodBM25: 1.2}),
		service.NewMatch(enriched, 0.3, nil),
	})

	assert.Contains(t, got, "**src/app.py**")
	assert.Contains(t, got, "```python\ndef greet():\n    pass\n```")
	assert.Contains(t, got, "**src/util.py**")
	assert.Contains(t, got, "Says goodbye.")
}

func TestHandleRetrieveExpandsAndFormats(t *testing.T) {
	sn := snippet.New(1, "src/app.py", snippet.LanguagePython, "def greet():\n    pass")
	searcher := &stubSearcher{matches: []service.Match{service.NewMatch(sn, 0.7, nil)}}
	s := NewServer(searcher, "test", quietLogger())

	result, err := s.handleRetrieve(context.Background(), toolRequest(map[string]any{
		"search_query":          "greeting helper",
		"related_file_paths":    []any{"cmd/main.go"},
		"related_file_contents": []any{"func main() {}"},
	}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	assert.Equal(t, "greeting helper main func main() {}", searcher.gotQuery)
	assert.Contains(t, resultText(t, result), "**src/app.py**")
}

func TestHandleRetrieveMissingQuery(t *testing.T) {
	s := NewServer(&stubSearcher{}, "test", quietLogger())

	result, err := s.handleRetrieve(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRetrieveSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: fmt.Errorf("store offline")}
	s := NewServer(searcher, "test", quietLogger())

	result, err := s.handleRetrieve(context.Background(), toolRequest(map[string]any{
		"search_query": "anything",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "store offline")
}
