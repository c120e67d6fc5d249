package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
)

// PrincipalService provisions local principals from successful upstream
// logins and looks them up for the API layer.
type PrincipalService interface {
	UpsertFromLogin(ctx context.Context, login dto.LoginRequest) (models.Principal, error)
	GetByID(ctx context.Context, principalID string) (models.Principal, error)
}

type principalService struct {
	principals  repository.PrincipalRepository
	credentials repository.CredentialRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPrincipalService constructs a PrincipalService.
func NewPrincipalService(principals repository.PrincipalRepository, credentials repository.CredentialRepository, logger zerolog.Logger) PrincipalService {
	return &principalService{
		principals:  principals,
		credentials: credentials,
		logger:      logger.With().Str("component", "principal_service").Logger(),
		now:         time.Now,
	}
}

// UpsertFromLogin creates the principal on first login with the student role,
// or refreshes profile fields on repeat logins without touching the role.
// Role promotion is an explicit administrative action, never a login side
// effect. The credential row is overwritten last; an absent refresh token in
// the login payload keeps the stored one.
func (s *principalService) UpsertFromLogin(ctx context.Context, login dto.LoginRequest) (models.Principal, error) {
	now := s.now()

	principal, err := s.principals.GetByExternalIDOrEmail(ctx, login.ExternalID, login.Email)
	switch {
	case err == nil:
		principal.ExternalID = login.ExternalID
		principal.Email = login.Email
		principal.Name = login.Name
		principal.Picture = login.Picture
		principal.LastLoginAt = &now
		if err := s.principals.Update(ctx, &principal); err != nil {
			return models.Principal{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		principal = models.Principal{
			ID:          uuid.NewString(),
			ExternalID:  login.ExternalID,
			Email:       login.Email,
			Name:        login.Name,
			Picture:     login.Picture,
			Role:        models.RoleStudent,
			Domain:      emailDomain(login.Email),
			LastLoginAt: &now,
		}
		if err := s.principals.Create(ctx, &principal); err != nil {
			return models.Principal{}, err
		}
		s.logger.Info().Str("principal_id", principal.ID).Str("domain", principal.Domain).Msg("provisioned new principal")
	default:
		return models.Principal{}, err
	}

	credential := models.Credential{
		PrincipalID:  principal.ID,
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(login.ExpiresIn) * time.Second),
	}
	if credential.RefreshToken == "" {
		if stored, err := s.credentials.Get(ctx, principal.ID); err == nil {
			credential.RefreshToken = stored.RefreshToken
		}
	}
	if err := s.credentials.Save(ctx, &credential); err != nil {
		return models.Principal{}, err
	}

	return principal, nil
}

func (s *principalService) GetByID(ctx context.Context, principalID string) (models.Principal, error) {
	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Principal{}, ErrPrincipalNotFound
		}
		return models.Principal{}, err
	}
	return principal, nil
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return ""
}
