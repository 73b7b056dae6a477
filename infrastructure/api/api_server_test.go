package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/infrastructure/git"
	"github.com/kodit-ai/kodit/infrastructure/persistence"
	infrasearch "github.com/kodit-ai/kodit/infrastructure/search"
	"github.com/kodit-ai/kodit/internal/database"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAdapter answers remote probes and nothing else; API tests never touch
// a real clone.
type stubAdapter struct {
	git.Adapter
	probeErr error
}

func (a *stubAdapter) ProbeRemote(context.Context, string) error { return a.probeErr }

type apiFixture struct {
	db       database.Database
	repos    *persistence.RepositoryStore
	commits  *persistence.CommitStore
	snippets *persistence.SnippetStore
	keyword  *infrasearch.BM25Index
	router   chi.Router
}

func newAPIFixture(t *testing.T, tokens []string, adapter *stubAdapter) *apiFixture {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db := database.FromGorm(gormDB)
	require.NoError(t, persistence.Migrate(context.Background(), db))

	repos := persistence.NewRepositoryStore(db)
	commits := persistence.NewCommitStore(db)
	snippets := persistence.NewSnippetStore(db)
	keyword := infrasearch.NewBM25Index()
	vectors := infrasearch.NewVectorStore(db)
	statuses := persistence.NewStatusStore(db)

	log := quietLogger()
	if adapter == nil {
		adapter = &stubAdapter{}
	}
	cloner := git.NewRepositoryCloner(adapter, t.TempDir(), log)
	queue := service.NewQueue(persistence.NewTaskStore(db), log)

	repoService := service.NewRepositoryService(repos, commits, snippets, vectors, keyword, cloner, adapter, queue, log)
	searchService := service.NewSearch(repos, commits, snippets, keyword, vectors, nil, log)

	server := NewAPIServer(repoService, searchService, queue, statuses, tokens, "test", log)
	router := chi.NewRouter()
	server.MountRoutes(router)

	return &apiFixture{
		db:       db,
		repos:    repos,
		commits:  commits,
		snippets: snippets,
		keyword:  keyword,
		router:   router,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc
}

func createIndexBody(uri string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"type": "index",
			"attributes": map[string]any{
				"source_uri": uri,
			},
		},
	}
}

func TestHealthzIsPublic(t *testing.T) {
	f := newAPIFixture(t, []string{"secret"}, nil)
	w := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPIFixture(t, []string{"secret"}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/indexes", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/indexes", nil, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateIndexAccepted(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/v1/indexes", createIndexBody("https://example.com/repo.git"), nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	doc := decodeDocument(t, w)
	data := doc["data"].(map[string]any)
	assert.Equal(t, "index", data["type"])
	attrs := data["attributes"].(map[string]any)
	assert.Equal(t, "https://example.com/repo.git", attrs["source_uri"])

	w = f.do(t, http.MethodGet, "/api/v1/queue", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "repository.index")
}

func TestCreateIndexValidation(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/v1/indexes", map[string]any{"data": map[string]any{"type": "index", "attributes": map[string]any{}}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndGetIndexes(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/v1/indexes", createIndexBody("https://example.com/repo.git"), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	doc := decodeDocument(t, w)
	id := doc["data"].(map[string]any)["id"].(string)

	w = f.do(t, http.MethodGet, "/api/v1/indexes", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeDocument(t, w)
	assert.Len(t, list["data"].([]any), 1)

	w = f.do(t, http.MethodGet, "/api/v1/indexes/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/indexes/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIndex(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	w := f.do(t, http.MethodPost, "/api/v1/indexes", createIndexBody("https://example.com/repo.git"), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeDocument(t, w)["data"].(map[string]any)["id"].(string)

	w = f.do(t, http.MethodDelete, "/api/v1/indexes/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/indexes/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	ctx := context.Background()

	repo, err := repository.NewRepository("https://example.com/repo.git")
	require.NoError(t, err)
	repo, err = f.repos.Save(ctx, repo)
	require.NoError(t, err)
	commit, err := f.commits.Save(ctx, repository.NewCommit(repo.ID(), "c1", "", repository.NewAuthor("dev", "dev@example.com"), "initial", time.Now().UTC()))
	require.NoError(t, err)

	snips, err := f.snippets.ReplaceForCommit(ctx, commit.ID(), []snippet.Snippet{
		snippet.New(commit.ID(), "auth/login.go", snippet.LanguageGo, "func HandleLogin(w http.ResponseWriter, r *http.Request) {}"),
	})
	require.NoError(t, err)
	require.NoError(t, f.keyword.Rebuild(ctx, repo.ID(), []search.Document{
		search.NewDocument(snips[0].ID(), snips[0].SHA(), snips[0].Content()),
	}))

	body := map[string]any{
		"data": map[string]any{
			"type": "search",
			"attributes": map[string]any{
				"text":  "handle login",
				"limit": 5,
			},
		},
	}
	w := f.do(t, http.MethodPost, "/api/v1/search", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeDocument(t, w)
	data := doc["data"].([]any)
	require.Len(t, data, 1)
	attrs := data[0].(map[string]any)["attributes"].(map[string]any)
	content := attrs["content"].(map[string]any)
	assert.Contains(t, content["value"], "HandleLogin")
	derives := attrs["derives_from"].([]any)
	assert.Equal(t, "auth/login.go", derives[0].(map[string]any)["path"])
	scores := attrs["original_scores"].(map[string]any)
	assert.Contains(t, scores, "bm25")
}

func TestSearchValidation(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	body := map[string]any{"data": map[string]any{"type": "search", "attributes": map[string]any{}}}
	w := f.do(t, http.MethodPost, "/api/v1/search", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIndexUnreachableRemote(t *testing.T) {
	adapter := &stubAdapter{probeErr: fmt.Errorf("probe: %w", git.ErrUnreachableRepo)}
	f := newAPIFixture(t, nil, adapter)

	w := f.do(t, http.MethodPost, "/api/v1/indexes", createIndexBody("https://example.com/missing.git"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	list := f.do(t, http.MethodGet, "/api/v1/indexes", nil, nil)
	require.Equal(t, http.StatusOK, list.Code)
	doc := decodeDocument(t, list)
	assert.Empty(t, doc["data"], "a failed probe must not persist the repository")
}
