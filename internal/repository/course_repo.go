package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// CourseRepository defines data operations for cached courses.
type CourseRepository interface {
	Upsert(ctx context.Context, course *models.Course) error
	GetByExternalID(ctx context.Context, externalID string) (models.Course, error)
	ListActive(ctx context.Context) ([]models.Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

// Upsert applies last-fetch-wins semantics keyed on the upstream course id.
// Rows are never deleted by the sync path.
func (r *courseRepository) Upsert(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "section", "teacher_id", "state", "creation_time", "update_time", "cached_at",
		}),
	}).Create(course).Error
}

func (r *courseRepository) GetByExternalID(ctx context.Context, externalID string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "external_id = ?", externalID).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("state = ?", models.CourseStateActive).
		Order("name ASC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("name ASC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}
