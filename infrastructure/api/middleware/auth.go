package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kodit-ai/kodit/infrastructure/api/jsonapi"
)

// publicPaths are reachable without a token even when auth is enabled.
var publicPaths = map[string]bool{
	"/":             true,
	"/healthz":      true,
	"/docs":         true,
	"/openapi.json": true,
}

// BearerAuth requires a valid bearer token on every non-public request. With
// no tokens configured the server runs open.
func BearerAuth(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := bearerToken(r)
			if !ok || !tokenValid(presented, tokens) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				WriteJSON(w, http.StatusUnauthorized, jsonapi.NewErrorResponse(
					jsonapi.NewError("401", "Unauthorized", "missing or invalid bearer token"),
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// tokenValid compares the presented token against every configured token in
// constant time.
func tokenValid(presented string, tokens []string) bool {
	valid := false
	for _, token := range tokens {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
			valid = true
		}
	}
	return valid
}
