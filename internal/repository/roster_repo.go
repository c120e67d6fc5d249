package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// RosterRepository defines data operations for cached roster entries.
type RosterRepository interface {
	Upsert(ctx context.Context, entry *models.RosterEntry) error
	ListByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository instantiates the repository.
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// Upsert applies last-fetch-wins semantics keyed on (course id, student
// external id). Entries absent from a fetch are left untouched.
func (r *rosterRepository) Upsert(ctx context.Context, entry *models.RosterEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "course_id"}, {Name: "student_external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"principal_id", "name", "email", "cached_at",
		}),
	}).Create(entry).Error
}

func (r *rosterRepository) ListByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("name ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
