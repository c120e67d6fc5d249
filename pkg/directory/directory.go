// Package directory wraps the institution's user-directory API. It is only
// used as a best-effort backfill when a roster entry lacks contact info, so
// callers are expected to log and ignore failures.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// User is a directory user record.
type User struct {
	PrimaryEmail string `json:"primaryEmail"`
	Name         struct {
		FullName string `json:"fullName"`
	} `json:"name"`
}

// Client issues directory lookups by upstream user id.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a directory client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "directory_client").Logger(),
	}
}

// GetUser looks up a user by their upstream id.
func (c *Client) GetUser(ctx context.Context, accessToken, externalID string) (User, error) {
	endpoint := fmt.Sprintf("%s/admin/directory/v1/users/%s", c.baseURL, url.PathEscape(externalID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("directory lookup for %s returned %d", externalID, resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, err
	}

	return user, nil
}
