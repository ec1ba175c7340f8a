package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/report-engine/api"
	"github.com/warp/report-engine/reporting"
)

// principalEcho captures the principal the middleware injected.
func principalEcho(captured *reporting.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := api.PrincipalFromContext(r.Context()); ok {
			*captured = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tok, err := api.IssueToken(testSecret, reporting.Principal{UserID: "alice", Roles: []string{"manager"}})
	require.NoError(t, err)

	var got reporting.Principal
	handler := api.AuthMiddleware(testSecret, false)(principalEcho(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, []string{"manager"}, got.Roles)
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	handler := api.AuthMiddleware(testSecret, false)(principalEcho(&reporting.Principal{}))

	for _, header := range []string{"", "Token abc", "Bearer", "bearer lowercase"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestAuthMiddleware_SkipAuthInjectsDevPrincipal(t *testing.T) {
	var got reporting.Principal
	handler := api.AuthMiddleware("", true)(principalEcho(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev-admin", got.UserID)
}
