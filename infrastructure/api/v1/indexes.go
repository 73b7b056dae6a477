// Package v1 provides the v1 API routes.
package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/api/jsonapi"
	"github.com/kodit-ai/kodit/infrastructure/api/middleware"
)

// StatusReader reads persisted progress statuses for a trackable entity.
type StatusReader interface {
	ByTrackable(ctx context.Context, trackableType task.TrackableType, trackableID int64) ([]task.Status, error)
}

// IndexesRouter handles the index (tracked repository) endpoints.
type IndexesRouter struct {
	repositories *service.RepositoryService
	statuses     StatusReader
	logger       *slog.Logger
}

// NewIndexesRouter creates an IndexesRouter.
func NewIndexesRouter(repositories *service.RepositoryService, statuses StatusReader, logger *slog.Logger) *IndexesRouter {
	return &IndexesRouter{repositories: repositories, statuses: statuses, logger: logger}
}

// Routes returns the chi router for index endpoints.
func (r *IndexesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Create)
	router.Get("/{id}", r.Get)
	router.Delete("/{id}", r.Delete)
	router.Get("/{id}/commits", r.ListCommits)
	router.Get("/{id}/status", r.ListStatus)

	return router
}

type indexAttributes struct {
	SourceURI     string            `json:"source_uri"`
	TrackingMode  string            `json:"tracking_mode"`
	Branch        string            `json:"branch,omitempty"`
	LastScannedAt *jsonapi.DateTime `json:"last_scanned_at"`
	CreatedAt     jsonapi.DateTime  `json:"created_at"`
	UpdatedAt     jsonapi.DateTime  `json:"updated_at"`
}

type createIndexRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			SourceURI string `json:"source_uri"`
			Branch    string `json:"branch"`
			TrackTags bool   `json:"track_tags"`
		} `json:"attributes"`
	} `json:"data"`
}

// List handles GET /api/v1/indexes.
func (r *IndexesRouter) List(w http.ResponseWriter, req *http.Request) {
	repos, err := r.repositories.List(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resources := make([]*jsonapi.Resource, 0, len(repos))
	for _, repo := range repos {
		resources = append(resources, indexResource(repo))
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(resources))
}

// Create handles POST /api/v1/indexes. Registration enqueues the first index
// run and answers 202.
func (r *IndexesRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body createIndexRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: %s", middleware.ErrBadRequest, err), r.logger)
		return
	}
	if body.Data.Attributes.SourceURI == "" {
		middleware.WriteError(w, req, fmt.Errorf("%w: source_uri is required", middleware.ErrBadRequest), r.logger)
		return
	}

	var tc repository.TrackingConfig
	switch {
	case body.Data.Attributes.TrackTags:
		tc = repository.TrackLatestVersionTag()
	case body.Data.Attributes.Branch != "":
		tc = repository.TrackBranch(body.Data.Attributes.Branch)
	}

	repo, err := r.repositories.Track(req.Context(), body.Data.Attributes.SourceURI, tc)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, jsonapi.NewSingleResponse(indexResource(repo)))
}

// Get handles GET /api/v1/indexes/{id}.
func (r *IndexesRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	repo, err := r.repositories.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(indexResource(repo)))
}

// Delete handles DELETE /api/v1/indexes/{id}.
func (r *IndexesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if err := r.repositories.Untrack(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitAttributes struct {
	SHA         string           `json:"sha"`
	ParentSHA   string           `json:"parent_sha,omitempty"`
	Message     string           `json:"message"`
	Author      string           `json:"author"`
	CommittedAt jsonapi.DateTime `json:"committed_at"`
}

// ListCommits handles GET /api/v1/indexes/{id}/commits, newest first.
func (r *IndexesRouter) ListCommits(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	commits, err := r.repositories.Commits(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resources := make([]*jsonapi.Resource, 0, len(commits))
	for _, c := range commits {
		resources = append(resources, jsonapi.NewResource("commit", c.SHA(), commitAttributes{
			SHA:         c.SHA(),
			ParentSHA:   c.ParentSHA(),
			Message:     c.Message(),
			Author:      c.Author().String(),
			CommittedAt: jsonapi.NewDateTime(c.CommittedAt()),
		}))
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(resources))
}

type statusAttributes struct {
	Operation string           `json:"operation"`
	Step      string           `json:"step,omitempty"`
	State     string           `json:"state"`
	Message   string           `json:"message,omitempty"`
	Total     int              `json:"total"`
	Current   int              `json:"current"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt jsonapi.DateTime `json:"updated_at"`
}

// ListStatus handles GET /api/v1/indexes/{id}/status.
func (r *IndexesRouter) ListStatus(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if _, err := r.repositories.Get(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	statuses, err := r.statuses.ByTrackable(req.Context(), task.TrackableRepository, id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resources := make([]*jsonapi.Resource, 0, len(statuses))
	for _, s := range statuses {
		resources = append(resources, jsonapi.NewResource("status", s.ID(), statusAttributes{
			Operation: s.Operation().String(),
			Step:      s.Step(),
			State:     string(s.State()),
			Message:   s.Message(),
			Total:     s.Total(),
			Current:   s.Current(),
			Error:     s.Error(),
			UpdatedAt: jsonapi.NewDateTime(s.UpdatedAt()),
		}))
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(resources))
}

func indexResource(repo repository.Repository) *jsonapi.Resource {
	attrs := indexAttributes{
		SourceURI:    repo.SanitizedURI(),
		TrackingMode: "default_branch",
		CreatedAt:    jsonapi.NewDateTime(repo.CreatedAt()),
		UpdatedAt:    jsonapi.NewDateTime(repo.UpdatedAt()),
	}
	tc := repo.TrackingConfig()
	switch {
	case tc.IsLatestVersionTag():
		attrs.TrackingMode = "latest_version_tag"
	case tc.IsBranch():
		attrs.TrackingMode = "branch"
		attrs.Branch = tc.Branch()
	}
	if at := repo.LastScannedAt(); at != nil {
		dt := jsonapi.NewDateTime(*at)
		attrs.LastScannedAt = &dt
	}
	return jsonapi.NewResource("index", strconv.FormatInt(repo.ID(), 10), attrs)
}

func pathID(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", middleware.ErrBadRequest)
	}
	return id, nil
}
