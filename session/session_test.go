package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/config"
	"github.com/user/tvitter-go/logging"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-0123456789",
		SessionDuration: time.Hour,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, expiresAt, err := m.Token("id-1", "didi93")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.UserID)
	assert.Equal(t, "didi93", claims.UserName)
	assert.Equal(t, "id-1", claims.Subject)
}

func TestParse_RejectsForeignSecret(t *testing.T) {
	other := NewManager(&config.AuthConfig{JWTSecret: "another-secret-987654", SessionDuration: time.Hour})
	token, _, err := other.Token("id-1", "didi93")
	require.NoError(t, err)

	_, err = newTestManager().Parse(token)
	assert.True(t, apperror.IsAuthError(err))
}

func TestParse_RejectsExpired(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Token("id-1", "didi93")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	assert.True(t, apperror.IsAuthError(err))
}

func TestParse_RejectsMissingIdentity(t *testing.T) {
	m := newTestManager()
	token, _, err := m.Token("", "")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.True(t, apperror.IsAuthError(err))
}

func TestStartAndEnd(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(rec, "id-1", "didi93"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)

	rec = httptest.NewRecorder()
	m.End(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestMiddleware(t *testing.T) {
	m := newTestManager()
	var seen *Claims
	handler := m.Middleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, seen)
	})

	t.Run("valid cookie", func(t *testing.T) {
		seen = nil
		token, _, err := m.Token("id-1", "didi93")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, seen)
		assert.Equal(t, "didi93", seen.UserName)
	})

	t.Run("tampered cookie is cleared", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Nil(t, seen)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Less(t, cookies[0].MaxAge, 0)
	})
}

func TestRequireSession(t *testing.T) {
	handler := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/edit", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/edit", nil)
	req = req.WithContext(NewContextWithClaims(req.Context(), &Claims{UserID: "id-1", UserName: "didi93"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	name, ok := UserNameFromContext(req.Context())
	assert.True(t, ok)
	assert.Equal(t, "didi93", name)
}
