package classroom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestTokenSource(t *testing.T, handler http.Handler) *TokenSource {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewTokenSource(server.URL, "client-id", "client-secret", 5*time.Second, zerolog.Nop())
}

func TestRefreshSendsGrantForm(t *testing.T) {
	source := newTestTokenSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		require.Equal(t, "client-id", r.PostForm.Get("client_id"))
		require.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		require.NoError(t, json.NewEncoder(w).Encode(Token{
			AccessToken: "fresh",
			ExpiresIn:   3600,
			TokenType:   "Bearer",
		}))
	}))

	token, err := source.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "fresh", token.AccessToken)
	require.Equal(t, 3600, token.ExpiresIn)
	require.Empty(t, token.RefreshToken)
}

func TestRefreshRevokedTokenIsRejected(t *testing.T) {
	source := newTestTokenSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))

	_, err := source.Refresh(context.Background(), "revoked")
	require.ErrorIs(t, err, ErrRejected)
}

func TestRefreshServerErrorIsUnavailable(t *testing.T) {
	source := newTestTokenSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := source.Refresh(context.Background(), "refresh-1")
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, ErrRejected)
}

func TestRefreshMissingAccessTokenIsRejected(t *testing.T) {
	source := newTestTokenSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(Token{ExpiresIn: 3600}))
	}))

	_, err := source.Refresh(context.Background(), "refresh-1")
	require.ErrorIs(t, err, ErrRejected)
}
