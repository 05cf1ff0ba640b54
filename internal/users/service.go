// Package users resolves user records from the engine API. The caller's
// bearer token travels as an explicit context value from the auth boundary
// to the outbound request.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/middleware"
)

// User is the subset of the engine's user record the chat service needs.
type User struct {
	ID         string `json:"id"`
	ProviderID string `json:"providerId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// Service calls the engine's user endpoints.
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates a user lookup service against the engine base URL.
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetByProviderID fetches a user by its provider id, authenticating with
// the bearer token carried by ctx.
func (s *Service) GetByProviderID(ctx context.Context, providerID string) (User, error) {
	endpoint := fmt.Sprintf("%s/users/providerId/%s", s.baseURL, url.PathEscape(providerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := middleware.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("fetch user %s: %w", providerID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("fetch user %s: engine returned %s", providerID, res.Status)
	}

	var user User
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", providerID, err)
	}
	return user, nil
}
