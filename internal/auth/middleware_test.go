package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessCookie = "access_token"

func protectedProbe(t *testing.T) (http.Handler, *Identity) {
	t.Helper()

	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	})

	return Middleware(testTokenService(), testAccessCookie, next), &seen
}

func TestMiddlewareMissingCookie(t *testing.T) {
	t.Parallel()

	handler, _ := protectedProbe(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/blog", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestMiddlewareInvalidToken(t *testing.T) {
	t.Parallel()

	handler, _ := protectedProbe(t)

	for _, value := range []string{"garbage", mustExpiredAccess(t)} {
		req := httptest.NewRequest(http.MethodPost, "/blog", nil)
		req.AddCookie(&http.Cookie{Name: testAccessCookie, Value: value})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		// The failure cause never reaches the client.
		assert.Contains(t, rec.Body.String(), "invalid access token")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	t.Parallel()

	handler, seen := protectedProbe(t)

	token, err := testTokenService().IssueAccess(testIdentity())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/blog", nil)
	req.AddCookie(&http.Cookie{Name: testAccessCookie, Value: token})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testIdentity(), *seen)
}

func TestIdentityFromBareContext(t *testing.T) {
	t.Parallel()

	_, ok := IdentityFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func mustExpiredAccess(t *testing.T) string {
	t.Helper()

	expired := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-test-secret"),
		RefreshSecret: []byte("refresh-test-secret"),
		AccessTTL:     -time.Second,
		RefreshTTL:    -time.Second,
	})
	token, err := expired.IssueAccess(testIdentity())
	require.NoError(t, err)
	return token
}
