// Package middleware holds the HTTP middlewares, most notably the bearer
// token verification at the authentication boundary.
package middleware

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// UserIDContextKey exposes the verified user id to echo handlers.
const UserIDContextKey = "userID"

type contextKey string

const (
	tokenContextKey  contextKey = "jamify.bearer-token"
	userIDContextKey contextKey = "jamify.user-id"
)

// WithToken returns a context carrying the raw bearer token. The token is
// threaded explicitly from the auth boundary to the outbound calls that
// need it; there is no ambient request-local storage.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the bearer token carried by ctx, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// WithUserID returns a context carrying the verified user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the verified user id carried by ctx, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// RequireAuth verifies the Authorization bearer token against the given
// public key and stores the verified subject and the raw token in the
// request context.
func RequireAuth(key *rsa.PublicKey) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(raw,
				func(t *jwt.Token) (any, error) { return key, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			)
			if err != nil || !token.Valid {
				slog.Debug("rejected bearer token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			ctx := WithUserID(WithToken(c.Request().Context(), raw), subject)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(UserIDContextKey, subject)
			return next(c)
		}
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
