package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authMiddleware "tripplan_app_echo/internal/middleware"
	"tripplan_app_echo/internal/models"
)

type fakeIssuer struct{}

func (fakeIssuer) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if token != "id-token" {
		return nil, errors.New("invalid")
	}
	return &auth.Token{UID: "fb-1", Claims: map[string]interface{}{"email": "a@example.com"}}, nil
}

func (fakeIssuer) SessionCookie(_ context.Context, token string, expiresIn time.Duration) (string, error) {
	return "session-for-" + token, nil
}

type stubUsers struct{}

func (stubUsers) EnsureUser(_ context.Context, uid, email, name string) (*models.User, error) {
	return &models.User{ID: 7, FirebaseUID: uid, Email: email}, nil
}

func TestCreateSessionSetsCookie(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	h := NewAuthHandler(fakeIssuer{}, stubUsers{}, true)
	e.POST("/auth/session", h.CreateSession)
	e.POST("/auth/logout", h.Logout)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer id-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authMiddleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "session-for-id-token", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)

	for _, header := range []string{"", "id-token", "Bearer wrong"} {
		req = httptest.NewRequest(http.MethodPost, "/auth/session", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
