package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	svc, err := NewService(Config{
		PasswordHash: hash,
		Secret:       "test-secret",
		SessionTTL:   time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginAndParseSession(t *testing.T) {
	svc := newTestService(t, "correct horse")

	token, expires, err := svc.Login("correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	require.NoError(t, svc.ParseSession(token))
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, "correct horse")
	_, _, err := svc.Login("battery staple")
	require.Error(t, err)
}

func TestParseSessionRejectsExpired(t *testing.T) {
	hash, err := argon2id.CreateHash("pw", argon2id.DefaultParams)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc, err := NewService(Config{
		PasswordHash: hash,
		Secret:       "test-secret",
		SessionTTL:   time.Hour,
		Now:          func() time.Time { return issued },
	})
	require.NoError(t, err)

	token, _, err := svc.Login("pw")
	require.NoError(t, err)

	fresh, err := NewService(Config{PasswordHash: hash, Secret: "test-secret", SessionTTL: time.Hour})
	require.NoError(t, err)
	require.Error(t, fresh.ParseSession(token))
}

func TestServiceDisabledWithoutHash(t *testing.T) {
	svc, err := NewService(Config{Secret: "s"})
	require.NoError(t, err)
	assert.False(t, svc.Enabled())
	_, _, err = svc.Login("anything")
	require.Error(t, err)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{PasswordHash: "$argon2id$..."})
	require.Error(t, err)
}

func TestLoginHandlerSetsCookie(t *testing.T) {
	svc := newTestService(t, "pw")
	h := &Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"password":"pw"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	require.NoError(t, svc.ParseSession(cookies[0].Value))
}

func TestLoginHandlerRejectsBadPassword(t *testing.T) {
	h := &Handler{Svc: newTestService(t, "pw")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"password":"nope"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "UNAUTHORIZED", payload.Error.Code)
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t, "pw")
	mw := Middleware{Service: svc}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("rejects missing session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
		rec := httptest.NewRecorder()
		mw.RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts session cookie", func(t *testing.T) {
		token, _, err := svc.Login("pw")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		mw.RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("accepts bearer token", func(t *testing.T) {
		token, _, err := svc.Login("pw")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("disabled admin", func(t *testing.T) {
		disabled, err := NewService(Config{Secret: "s"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil)
		rec := httptest.NewRecorder()
		Middleware{Service: disabled}.RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
