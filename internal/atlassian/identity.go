// Package atlassian resolves OAuth credentials into workspace and profile
// information via the Atlassian identity endpoints.
package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/VrtlyJoe/bug-cutter-frontend/pkg/models"
)

const requestTimeout = 30 * time.Second

// Resolver exchanges a bearer token for the caller's workspace ("cloud") id
// and profile. It holds no per-credential state; every call re-resolves.
type Resolver struct {
	baseURL string
}

// NewResolver creates a resolver against the given identity API base URL
// (https://api.atlassian.com outside of tests).
func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: baseURL}
}

// ResolveWorkspace returns the cloud id of the first workspace accessible to
// the credential.
func (r *Resolver) ResolveWorkspace(ctx context.Context, token string) (string, error) {
	var resources []struct {
		ID string `json:"id"`
	}
	if err := r.getJSON(ctx, token, "/oauth/token/accessible-resources", &resources); err != nil {
		return "", err
	}
	if len(resources) == 0 {
		return "", &models.AuthError{Reason: "credential has no accessible workspaces"}
	}
	return resources[0].ID, nil
}

// GetProfile fetches the caller's identity.
func (r *Resolver) GetProfile(ctx context.Context, token string) (models.Profile, error) {
	var profile models.Profile
	if err := r.getJSON(ctx, token, "/me", &profile); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *Resolver) getJSON(ctx context.Context, token, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient(ctx, token).Do(req)
	if err != nil {
		return &models.AuthError{Reason: "identity request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.AuthError{
			Reason: fmt.Sprintf("identity endpoint %s returned status %d", path, resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}

// httpClient builds an authenticated client for one call. The credential is
// never stored beyond the token source.
func httpClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = requestTimeout
	return client
}
