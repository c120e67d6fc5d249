package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// PrincipalRepository defines data operations for principals.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (models.Principal, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Principal, error)
	GetByExternalIDOrEmail(ctx context.Context, externalID, email string) (models.Principal, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]models.Principal, error)
	Create(ctx context.Context, principal *models.Principal) error
	Update(ctx context.Context, principal *models.Principal) error
}

type principalRepository struct {
	db *gorm.DB
}

// NewPrincipalRepository instantiates the repository.
func NewPrincipalRepository(db *gorm.DB) PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (models.Principal, error) {
	var principal models.Principal
	if err := r.db.WithContext(ctx).First(&principal, "id = ?", id).Error; err != nil {
		return models.Principal{}, err
	}

	return principal, nil
}

func (r *principalRepository) GetByExternalID(ctx context.Context, externalID string) (models.Principal, error) {
	var principal models.Principal
	if err := r.db.WithContext(ctx).First(&principal, "external_id = ?", externalID).Error; err != nil {
		return models.Principal{}, err
	}

	return principal, nil
}

func (r *principalRepository) GetByExternalIDOrEmail(ctx context.Context, externalID, email string) (models.Principal, error) {
	var principal models.Principal
	if err := r.db.WithContext(ctx).
		Where("external_id = ? OR email = ?", externalID, email).
		First(&principal).Error; err != nil {
		return models.Principal{}, err
	}

	return principal, nil
}

func (r *principalRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]models.Principal, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	var principals []models.Principal
	if err := r.db.WithContext(ctx).
		Where("external_id IN ?", externalIDs).
		Find(&principals).Error; err != nil {
		return nil, err
	}

	return principals, nil
}

func (r *principalRepository) Create(ctx context.Context, principal *models.Principal) error {
	return r.db.WithContext(ctx).Create(principal).Error
}

func (r *principalRepository) Update(ctx context.Context, principal *models.Principal) error {
	return r.db.WithContext(ctx).Save(principal).Error
}
