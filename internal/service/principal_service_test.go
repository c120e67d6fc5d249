package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
)

func newPrincipalServiceFixture(t *testing.T, name string) (PrincipalService, repository.PrincipalRepository, repository.CredentialRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Principal{}, &models.Credential{}))

	principals := repository.NewPrincipalRepository(db)
	credentials := repository.NewCredentialRepository(db)

	return NewPrincipalService(principals, credentials, zerolog.Nop()), principals, credentials
}

func TestUpsertFromLoginProvisionsStudent(t *testing.T) {
	svc, _, credentials := newPrincipalServiceFixture(t, "principal_first_login")

	principal, err := svc.UpsertFromLogin(context.Background(), dto.LoginRequest{
		ExternalID:   "u-1",
		Email:        "ana@school.edu",
		Name:         "Ana Lima",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)
	require.NotEmpty(t, principal.ID)
	require.Equal(t, models.RoleStudent, principal.Role)
	require.Equal(t, "school.edu", principal.Domain)
	require.NotNil(t, principal.LastLoginAt)

	credential, err := credentials.Get(context.Background(), principal.ID)
	require.NoError(t, err)
	require.Equal(t, "access-1", credential.AccessToken)
	require.Equal(t, "refresh-1", credential.RefreshToken)
	require.True(t, credential.ExpiresAt.After(time.Now()))
}

func TestUpsertFromLoginKeepsRoleOnRepeatLogin(t *testing.T) {
	svc, principals, _ := newPrincipalServiceFixture(t, "principal_repeat_login")
	ctx := context.Background()

	first, err := svc.UpsertFromLogin(ctx, dto.LoginRequest{
		ExternalID:   "u-1",
		Email:        "ana@school.edu",
		Name:         "Ana",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)

	// An administrator promotes the principal between logins.
	promoted, err := principals.GetByID(ctx, first.ID)
	require.NoError(t, err)
	promoted.Role = models.RoleTeacher
	require.NoError(t, principals.Update(ctx, &promoted))

	second, err := svc.UpsertFromLogin(ctx, dto.LoginRequest{
		ExternalID:   "u-1",
		Email:        "ana@school.edu",
		Name:         "Ana Lima",
		Picture:      "https://img.example/ana.png",
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, models.RoleTeacher, second.Role)
	require.Equal(t, "Ana Lima", second.Name)
	require.Equal(t, "https://img.example/ana.png", second.Picture)
}

func TestUpsertFromLoginKeepsStoredRefreshToken(t *testing.T) {
	svc, _, credentials := newPrincipalServiceFixture(t, "principal_no_rotation")
	ctx := context.Background()

	first, err := svc.UpsertFromLogin(ctx, dto.LoginRequest{
		ExternalID:   "u-1",
		Email:        "ana@school.edu",
		Name:         "Ana",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)

	// Repeat consent: the provider returned no refresh token this time.
	_, err = svc.UpsertFromLogin(ctx, dto.LoginRequest{
		ExternalID:  "u-1",
		Email:       "ana@school.edu",
		Name:        "Ana",
		AccessToken: "access-2",
		ExpiresIn:   3600,
	})
	require.NoError(t, err)

	credential, err := credentials.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "access-2", credential.AccessToken)
	require.Equal(t, "refresh-1", credential.RefreshToken)
}

func TestGetByIDUnknownPrincipal(t *testing.T) {
	svc, _, _ := newPrincipalServiceFixture(t, "principal_unknown")

	_, err := svc.GetByID(context.Background(), "00000000-0000-0000-0000-000000000001")
	require.ErrorIs(t, err, ErrPrincipalNotFound)
}
