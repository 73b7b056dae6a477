package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/infrastructure/api/jsonapi"
	"github.com/kodit-ai/kodit/infrastructure/api/middleware"
)

// QueueRouter exposes pending task counts.
type QueueRouter struct {
	queue  *service.Queue
	logger *slog.Logger
}

// NewQueueRouter creates a QueueRouter.
func NewQueueRouter(queue *service.Queue, logger *slog.Logger) *QueueRouter {
	return &QueueRouter{queue: queue, logger: logger}
}

// Routes returns the chi router for queue endpoints.
func (r *QueueRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Get)
	return router
}

type queueAttributes struct {
	Pending map[string]int64 `json:"pending"`
	Total   int64            `json:"total"`
}

// Get handles GET /api/v1/queue.
func (r *QueueRouter) Get(w http.ResponseWriter, req *http.Request) {
	counts, err := r.queue.PendingCounts(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	attrs := queueAttributes{Pending: make(map[string]int64, len(counts))}
	for operation, count := range counts {
		attrs.Pending[operation.String()] = count
		attrs.Total += count
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(
		jsonapi.NewResource("queue", "queue", attrs),
	))
}
