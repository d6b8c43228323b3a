package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	authMiddleware "tripplan_app_echo/internal/middleware"
)

const sessionLifetime = 5 * 24 * time.Hour

// SessionIssuer verifies ID tokens and mints session cookies; *auth.Client satisfies it
type SessionIssuer interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	issuer       SessionIssuer
	users        authMiddleware.UserEnsurer
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(issuer SessionIssuer, users authMiddleware.UserEnsurer, secureCookie bool) *AuthHandler {
	return &AuthHandler{issuer: issuer, users: users, secureCookie: secureCookie}
}

// CreateSession verifies the Firebase ID token and sets a session cookie
func (h *AuthHandler) CreateSession(c echo.Context) error {
	if h.issuer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}

	ctx := c.Request().Context()
	token, err := h.issuer.VerifyIDToken(ctx, tokenString)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	user, err := h.users.EnsureUser(ctx, token.UID, email, name)
	if err != nil {
		return err
	}

	cookieValue, err := h.issuer.SessionCookie(ctx, tokenString, sessionLifetime)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	c.SetCookie(&http.Cookie{
		Name:     authMiddleware.SessionCookieName,
		Value:    cookieValue,
		MaxAge:   int(sessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, user)
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c echo.Context) error {
	authMiddleware.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
