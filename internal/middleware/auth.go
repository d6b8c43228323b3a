package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"tripplan_app_echo/internal/models"
)

// SessionCookieName is the cookie that carries the Firebase session
const SessionCookieName = "session"

// TokenVerifier checks Firebase credentials; *auth.Client satisfies it
type TokenVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserEnsurer maps a verified identity onto an internal user
type UserEnsurer interface {
	EnsureUser(ctx context.Context, firebaseUID, email, name string) (*models.User, error)
}

// RequireAuth returns a middleware that accepts either a Firebase session
// cookie or a Bearer ID token and stores the internal user id as "userID"
func RequireAuth(verifier TokenVerifier, users UserEnsurer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}
			ctx := c.Request().Context()

			var (
				token *auth.Token
				err   error
			)
			if bearer, ok := bearerToken(c.Request()); ok {
				token, err = verifier.VerifyIDToken(ctx, bearer)
			} else if cookie, cerr := c.Cookie(SessionCookieName); cerr == nil && cookie.Value != "" {
				token, err = verifier.VerifySessionCookie(ctx, cookie.Value)
				if err != nil {
					ClearSessionCookie(c)
				}
			} else {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
			}

			email, _ := token.Claims["email"].(string)
			name, _ := token.Claims["name"].(string)
			user, err := users.EnsureUser(ctx, token.UID, email, name)
			if err != nil {
				return err
			}

			c.Set("userID", user.ID)
			c.Set("userUID", token.UID)
			c.Set("userEmail", email)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header || token == "" {
		return "", false
	}
	return token, true
}

// ClearSessionCookie expires the session cookie on the client
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}
