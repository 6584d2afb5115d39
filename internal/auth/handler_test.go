package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-service/internal/observability"
)

const testRefreshCookie = "refresh_token"

func testHandler(t *testing.T, store UserStore) *Handler {
	t.Helper()

	svc := NewService(store, testTokenService())
	return NewHandler(svc, observability.NewLogger(), testAccessCookie, testRefreshCookie)
}

func cookieByName(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginSetsBothCookies(t *testing.T) {
	t.Parallel()

	store := storeWithUser(t, "alice01", "a@x.com", "p1")
	handler := testHandler(t, store)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"username":"alice01","password":"p1"}`,
	))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	resp := rec.Result()
	access := cookieByName(t, resp, testAccessCookie)
	require.NotNil(t, access)
	assert.Equal(t, 3600, access.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)

	refresh := cookieByName(t, resp, testRefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, 7200, refresh.MaxAge)
	assert.True(t, refresh.HttpOnly)
	assert.True(t, refresh.Secure)
}

func TestLoginUnknownUser(t *testing.T) {
	t.Parallel()

	handler := testHandler(t, newFakeUserStore())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"username":"nobody","password":"p1"}`,
	))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	store := storeWithUser(t, "alice01", "a@x.com", "p1")
	handler := testHandler(t, store)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"username":"alice01","password":"wrong"}`,
	))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRequiresUsernameOrEmail(t *testing.T) {
	t.Parallel()

	handler := testHandler(t, newFakeUserStore())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(
		`{"password":"p1"}`,
	))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupAndDuplicate(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	handler := testHandler(t, store)

	body := `{"username":"alice01","email":"a@x.com","password":"p1","userImg":"http://i/a.png"}`

	rec := httptest.NewRecorder()
	handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result"`)
	assert.NotContains(t, rec.Body.String(), "password")

	store.createErr = ErrDuplicateUser
	rec = httptest.NewRecorder()
	handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	handler := testHandler(t, newFakeUserStore())

	cases := []string{
		`{"email":"a@x.com","password":"p1","userImg":"http://i/a.png"}`,    // no username
		`{"username":"al","email":"a@x.com","password":"p1","userImg":"http://i/a.png"}`, // username too short
		`{"username":"alice01","email":"not-an-email","password":"p1","userImg":"http://i/a.png"}`,
		`{"username":"alice01","email":"a@x.com","userImg":"http://i/a.png"}`, // no password
		`{"username":"alice01","email":"a@x.com","password":"p1"}`,           // no userImg
		`{"username":"alice01","unknown":1}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		handler.Signup(rec, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestRefreshMintsAccessCookie(t *testing.T) {
	t.Parallel()

	handler := testHandler(t, newFakeUserStore())
	tokens := handler.service.tokens

	refresh, err := tokens.IssueRefresh(testIdentity())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: testRefreshCookie, Value: refresh})

	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(t, rec.Result(), testAccessCookie)
	require.NotNil(t, access)

	identity, err := tokens.VerifyAccess(access.Value)
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), identity)
}

func TestRefreshFailures(t *testing.T) {
	t.Parallel()

	handler := testHandler(t, newFakeUserStore())

	// Missing cookie.
	rec := httptest.NewRecorder()
	handler.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unverifiable cookie.
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: testRefreshCookie, Value: "garbage"})
	rec = httptest.NewRecorder()
	handler.Refresh(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
