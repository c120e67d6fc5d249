package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// CredentialRepository defines data operations for OAuth credentials. One row
// per principal, overwritten in place.
type CredentialRepository interface {
	Get(ctx context.Context, principalID string) (models.Credential, error)
	Save(ctx context.Context, credential *models.Credential) error
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository instantiates the repository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, principalID string) (models.Credential, error) {
	var credential models.Credential
	if err := r.db.WithContext(ctx).First(&credential, "principal_id = ?", principalID).Error; err != nil {
		return models.Credential{}, err
	}

	return credential, nil
}

// Save persists the full token pair in a single write. Concurrent refreshes
// for the same principal resolve as last write wins.
func (r *credentialRepository) Save(ctx context.Context, credential *models.Credential) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(credential).Error
}
