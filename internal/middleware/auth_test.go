package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key, &key.PublicKey
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func runAuth(t *testing.T, public *rsa.PublicKey, authorization string, next echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireAuth(public)(next)(c)
	return rec, err
}

func TestRequireAuth_ValidToken(t *testing.T) {
	private, public := newKeyPair(t)
	raw := signToken(t, private, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	var gotUserID, gotToken string
	_, err := runAuth(t, public, "Bearer "+raw, func(c echo.Context) error {
		gotUserID, _ = c.Get(UserIDContextKey).(string)
		gotToken, _ = TokenFromContext(c.Request().Context())
		userID, ok := UserIDFromContext(c.Request().Context())
		assert.True(t, ok)
		assert.Equal(t, "alice", userID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", gotUserID)
	assert.Equal(t, raw, gotToken)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	_, public := newKeyPair(t)

	_, err := runAuth(t, public, "", func(c echo.Context) error {
		t.Fatal("handler must not run without a token")
		return nil
	})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAuth_WrongKey(t *testing.T) {
	otherPrivate, _ := newKeyPair(t)
	_, public := newKeyPair(t)

	raw := signToken(t, otherPrivate, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := runAuth(t, public, "Bearer "+raw, func(c echo.Context) error { return nil })

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	private, public := newKeyPair(t)
	raw := signToken(t, private, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := runAuth(t, public, "Bearer "+raw, func(c echo.Context) error { return nil })

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireAuth_TokenWithoutSubject(t *testing.T) {
	private, public := newKeyPair(t)
	raw := signToken(t, private, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := runAuth(t, public, "Bearer "+raw, func(c echo.Context) error { return nil })

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestTokenContext_RoundTrip(t *testing.T) {
	ctx := WithUserID(WithToken(context.Background(), "raw-token"), "alice")

	token, ok := TokenFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "raw-token", token)

	userID, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", userID)

	// An unadorned context carries neither.
	_, ok = TokenFromContext(context.Background())
	assert.False(t, ok)
}
