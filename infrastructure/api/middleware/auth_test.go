package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthOpenWithoutTokens(t *testing.T) {
	handler := BearerAuth(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexes", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerAuthRejectsMissingToken(t *testing.T) {
	handler := BearerAuth([]string{"secret"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexes", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestBearerAuthRejectsWrongToken(t *testing.T) {
	handler := BearerAuth([]string{"secret"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuthAcceptsAnyConfiguredToken(t *testing.T) {
	handler := BearerAuth([]string{"first", "second"})(okHandler())

	for _, token := range []string{"first", "second"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "token %q", token)
	}
}

func TestBearerAuthPublicPaths(t *testing.T) {
	handler := BearerAuth([]string{"secret"})(okHandler())

	for _, path := range []string{"/", "/healthz", "/docs", "/openapi.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "path %q", path)
	}
}

func TestBearerAuthRejectsMalformedHeader(t *testing.T) {
	handler := BearerAuth([]string{"secret"})(okHandler())

	for _, header := range []string{"secret", "Basic secret", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
