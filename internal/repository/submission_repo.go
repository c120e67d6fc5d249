package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// SubmissionFilter narrows cached submission queries.
type SubmissionFilter struct {
	CourseID          *string
	AssignmentID      *string
	StudentExternalID *string
	PrincipalID       *string
}

// SubmissionRepository defines data operations for cached submissions.
type SubmissionRepository interface {
	Upsert(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Upsert applies last-fetch-wins semantics keyed on (external id, assignment
// id, course id). Grade and state always reflect the latest fetch.
func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}, {Name: "assignment_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"principal_id", "student_external_id", "state", "late", "draft_grade", "assigned_grade", "submitted_at", "cached_at",
		}),
	}).Create(submission).Error
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}
	if filter.StudentExternalID != nil {
		query = query.Where("student_external_id = ?", *filter.StudentExternalID)
	}
	if filter.PrincipalID != nil {
		query = query.Where("principal_id = ?", *filter.PrincipalID)
	}

	var submissions []models.Submission
	if err := query.Order("cached_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
