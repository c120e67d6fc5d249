package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// AssignmentRepository defines data operations for cached assignments.
type AssignmentRepository interface {
	Upsert(ctx context.Context, assignment *models.Assignment) error
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	ListPublishedByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Upsert applies last-fetch-wins semantics keyed on (external id, course id).
func (r *assignmentRepository) Upsert(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "state", "due_date", "max_points", "assignee_mode", "audience_ids", "creation_time", "cached_at",
		}),
	}).Create(assignment).Error
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("due_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListPublishedByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND state = ?", courseID, models.AssignmentStatePublished).
		Order("due_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}
