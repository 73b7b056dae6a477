// Package mcp exposes retrieval to coding assistants over the Model Context
// Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kodit-ai/kodit/application/service"
)

// Searcher runs one retrieval query.
type Searcher interface {
	Query(ctx context.Context, request service.SearchRequest) ([]service.Match, error)
}

// Server wraps an MCP server carrying the retrieval tool.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	logger    *slog.Logger
}

// NewServer creates a Server exposing retrieve_relevant_snippets.
func NewServer(searcher Searcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{searcher: searcher, logger: logger}

	mcpServer := server.NewMCPServer(
		"kodit",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	tool := mcp.NewTool("retrieve_relevant_snippets",
		mcp.WithDescription("Retrieve indexed code snippets relevant to the task at hand using hybrid keyword and semantic search"),
		mcp.WithString("search_query",
			mcp.Required(),
			mcp.Description("Natural-language description of the code you are looking for"),
		),
		mcp.WithArray("related_file_paths",
			mcp.Description("Paths of files the user is currently working on"),
		),
		mcp.WithArray("related_file_contents",
			mcp.Description("Contents of files the user is currently working on"),
		),
	)
	mcpServer.AddTool(tool, s.handleRetrieve)
}

func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("search_query")
	if err != nil {
		return mcp.NewToolResultError("search_query is required"), nil
	}

	paths := request.GetStringSlice("related_file_paths", nil)
	contents := request.GetStringSlice("related_file_contents", nil)
	query = expandQuery(query, paths, contents)

	matches, err := s.searcher.Query(ctx, service.SearchRequest{Query: query})
	if err != nil {
		s.logger.Error("mcp retrieval failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatMatches(matches)), nil
}

// expandQuery folds the working-set context into the search query: file
// base names plus a bounded slice of each file's content.
func expandQuery(query string, paths, contents []string) string {
	const contextChars = 200

	var b strings.Builder
	b.WriteString(query)
	for _, path := range paths {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if name != "" {
			b.WriteByte(' ')
			b.WriteString(name)
		}
	}
	for _, content := range contents {
		if len(content) > contextChars {
			content = content[:contextChars]
		}
		b.WriteByte(' ')
		b.WriteString(content)
	}
	return b.String()
}

// formatMatches renders matches as markdown code fences with their source
// path, the format assistants consume best.
func formatMatches(matches []service.Match) string {
	if len(matches) == 0 {
		return "No relevant snippets found."
	}

	var b strings.Builder
	for i, match := range matches {
		sn := match.Snippet()
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "**%s**\n\n", sn.FilePath())
		fmt.Fprintf(&b, "```%s\n%s\n```\n", sn.Language(), strings.TrimRight(sn.Content(), "\n"))
		if sn.HasEnrichment() {
			fmt.Fprintf(&b, "\n%s\n", sn.Enrichment())
		}
	}
	return b.String()
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// SSEHandler returns an HTTP handler serving the MCP protocol over SSE.
func (s *Server) SSEHandler() *server.SSEServer {
	return server.NewSSEServer(s.mcpServer)
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
