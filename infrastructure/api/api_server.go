package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kodit-ai/kodit/application/service"
	apimiddleware "github.com/kodit-ai/kodit/infrastructure/api/middleware"
	v1 "github.com/kodit-ai/kodit/infrastructure/api/v1"
	"github.com/kodit-ai/kodit/internal/mcp"
)

// APIServer wires the application services into HTTP routes.
type APIServer struct {
	repositories *service.RepositoryService
	search       *service.Search
	queue        *service.Queue
	statuses     v1.StatusReader
	tokens       []string
	version      string
	server       *Server
	logger       *slog.Logger
}

// NewAPIServer creates an APIServer. tokens configures bearer auth; with no
// tokens the server runs open.
func NewAPIServer(
	repositories *service.RepositoryService,
	search *service.Search,
	queue *service.Queue,
	statuses v1.StatusReader,
	tokens []string,
	version string,
	logger *slog.Logger,
) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		repositories: repositories,
		search:       search,
		queue:        queue,
		statuses:     statuses,
		tokens:       tokens,
		version:      version,
		logger:       logger,
	}
}

// MountRoutes wires all routes onto the router.
func (a *APIServer) MountRoutes(router chi.Router) {
	router.Use(apimiddleware.Logging(a.logger))
	router.Use(apimiddleware.BearerAuth(a.tokens))

	router.Get("/", a.handleRoot)
	router.Get("/healthz", a.handleHealth)

	docs := NewDocsRouter("/openapi.json")
	router.Get("/docs", docs.UI)
	router.Get("/openapi.json", docs.Spec)

	indexes := v1.NewIndexesRouter(a.repositories, a.statuses, a.logger)
	searchRouter := v1.NewSearchRouter(a.search, a.logger)
	queueRouter := v1.NewQueueRouter(a.queue, a.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Mount("/indexes", indexes.Routes())
		r.Mount("/search", searchRouter.Routes())
		r.Mount("/queue", queueRouter.Routes())
	})

	// The MCP endpoint streams; no timeout middleware.
	mcpServer := mcp.NewServer(a.search, a.version, a.logger)
	router.Mount("/mcp", mcpServer.SSEHandler())
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = server
	a.MountRoutes(server.Router())
	return server.Start()
}

// Shutdown gracefully stops the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *APIServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{
		"name":    "kodit",
		"version": a.version,
		"docs":    "/docs",
	})
}

func (a *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": a.version,
	})
}
