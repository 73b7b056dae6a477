package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/infrastructure/api/jsonapi"
	"github.com/kodit-ai/kodit/infrastructure/api/middleware"
)

// SearchRouter handles the retrieval endpoint.
type SearchRouter struct {
	search *service.Search
	logger *slog.Logger
}

// NewSearchRouter creates a SearchRouter.
func NewSearchRouter(search *service.Search, logger *slog.Logger) *SearchRouter {
	return &SearchRouter{search: search, logger: logger}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Search)
	return router
}

type searchRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Text    string `json:"text"`
			Limit   int    `json:"limit"`
			RepoURL string `json:"repo_url"`
		} `json:"attributes"`
	} `json:"data"`
}

type snippetContent struct {
	Value string `json:"value"`
}

type snippetDerivation struct {
	Path string `json:"path"`
}

type snippetAttributes struct {
	Content        snippetContent      `json:"content"`
	DerivesFrom    []snippetDerivation `json:"derives_from"`
	Language       string              `json:"language"`
	Enrichment     string              `json:"enrichment,omitempty"`
	Score          float64             `json:"score"`
	OriginalScores map[string]float64  `json:"original_scores"`
}

// Search handles POST /api/v1/search.
func (r *SearchRouter) Search(w http.ResponseWriter, req *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("%w: %s", middleware.ErrBadRequest, err), r.logger)
		return
	}
	if body.Data.Attributes.Text == "" {
		middleware.WriteError(w, req, fmt.Errorf("%w: text is required", middleware.ErrBadRequest), r.logger)
		return
	}

	matches, err := r.search.Query(req.Context(), service.SearchRequest{
		Query:   body.Data.Attributes.Text,
		RepoURI: body.Data.Attributes.RepoURL,
		Limit:   body.Data.Attributes.Limit,
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resources := make([]*jsonapi.Resource, 0, len(matches))
	for _, match := range matches {
		sn := match.Snippet()
		resources = append(resources, jsonapi.NewResource("snippet", strconv.FormatInt(sn.ID(), 10), snippetAttributes{
			Content:        snippetContent{Value: sn.Content()},
			DerivesFrom:    []snippetDerivation{{Path: sn.FilePath()}},
			Language:       sn.Language().String(),
			Enrichment:     sn.Enrichment(),
			Score:          match.Score(),
			OriginalScores: originalScores(match),
		}))
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(resources))
}

func originalScores(match service.Match) map[string]float64 {
	scores := make(map[string]float64)
	for _, method := range []search.Method{search.MethodBM25, search.MethodCodeVector, search.MethodTextVector} {
		if score, ok := match.OriginalScore(method); ok {
			scores[string(method)] = score
		}
	}
	return scores
}
