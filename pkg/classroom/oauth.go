package classroom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TokenSource exchanges refresh tokens for fresh access tokens at the
// provider's OAuth token endpoint. It holds no per-principal state.
type TokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewTokenSource constructs a TokenSource for the given token endpoint.
func NewTokenSource(tokenURL, clientID, clientSecret string, timeout time.Duration, logger zerolog.Logger) *TokenSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &TokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With().Str("component", "classroom_token_source").Logger(),
	}
}

// Refresh performs a refresh-token grant. A rejected grant (revoked or
// invalid refresh token) surfaces as ErrRejected; transport and server
// failures surface as ErrUnavailable. The response may omit the refresh
// token, in which case the stored one remains valid.
func (ts *TokenSource) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", ts.clientID)
	form.Set("client_secret", ts.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Token{}, fmt.Errorf("%w: token endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		ts.logger.Debug().Int("status", resp.StatusCode).Msg("token refresh rejected")
		return Token{}, fmt.Errorf("%w: token endpoint returned %d: %s", ErrRejected, resp.StatusCode, snippet)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Token{}, fmt.Errorf("%w: decoding token response: %v", ErrUnavailable, err)
	}

	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: token response missing access token", ErrRejected)
	}

	return token, nil
}
