package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/observability"
	"github.com/noah-isme/classmirror-api/internal/repository"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
)

// TokenRefresher exchanges a refresh token for a new access token.
// *classroom.TokenSource satisfies it.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (classroom.Token, error)
}

// TokenService owns the credential lifecycle: it decides when a principal's
// access token needs a refresh and persists the refreshed pair.
type TokenService interface {
	ObtainCredential(ctx context.Context, principalID string) (models.Credential, error)
}

type tokenService struct {
	credentials repository.CredentialRepository
	refresher   TokenRefresher
	margin      time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTokenService constructs a TokenService. The margin treats tokens
// expiring within it as already expired, so a token cannot lapse mid-request.
func NewTokenService(credentials repository.CredentialRepository, refresher TokenRefresher, margin time.Duration, logger zerolog.Logger) TokenService {
	return &tokenService{
		credentials: credentials,
		refresher:   refresher,
		margin:      margin,
		logger:      logger.With().Str("component", "token_service").Logger(),
		now:         time.Now,
	}
}

// ObtainCredential returns a credential valid for immediate use, refreshing
// and persisting it first when needed. Concurrent calls for the same
// principal may both refresh; the redundant refresh is harmless and the last
// write wins, so no lock is taken.
func (s *tokenService) ObtainCredential(ctx context.Context, principalID string) (models.Credential, error) {
	credential, err := s.credentials.Get(ctx, principalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Credential{}, ErrAuthRequired
		}
		return models.Credential{}, err
	}

	if !credential.NeedsRefresh(s.now(), s.margin) {
		return credential, nil
	}

	token, err := s.refresher.Refresh(ctx, credential.RefreshToken)
	if err != nil {
		if errors.Is(err, classroom.ErrRejected) {
			observability.TokenRefreshes().WithLabelValues("rejected").Inc()
			s.logger.Warn().Str("principal_id", principalID).Msg("refresh token rejected by upstream")
			return models.Credential{}, fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		observability.TokenRefreshes().WithLabelValues("error").Inc()
		return models.Credential{}, err
	}

	credential.AccessToken = token.AccessToken
	credential.ExpiresAt = s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if token.RefreshToken != "" {
		// Upstream rotated the refresh token; keep the stored one otherwise.
		credential.RefreshToken = token.RefreshToken
	}

	if err := s.credentials.Save(ctx, &credential); err != nil {
		return models.Credential{}, err
	}

	observability.TokenRefreshes().WithLabelValues("ok").Inc()
	s.logger.Info().Str("principal_id", principalID).Time("expires_at", credential.ExpiresAt).Msg("access token refreshed")

	return credential, nil
}
