package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/observability"
	"github.com/noah-isme/classmirror-api/internal/repository"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
)

// CacheReconciler merges freshly fetched upstream records into the local
// store under their natural keys. Upserts are idempotent and last-fetch-wins;
// nothing is ever deleted, since a fetch may be scoped narrower than
// "everything". Each method returns the mapped record together with any cache
// write error, so write-through callers can keep the fetched data even when
// persisting it failed.
type CacheReconciler interface {
	UpsertCourse(ctx context.Context, course classroom.Course) (models.Course, error)
	UpsertAssignment(ctx context.Context, work classroom.CourseWork) (models.Assignment, error)
	UpsertSubmission(ctx context.Context, submission classroom.StudentSubmission) (models.Submission, error)
	UpsertRosterEntry(ctx context.Context, student classroom.Student) (models.RosterEntry, error)
}

type cacheReconciler struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	roster      repository.RosterRepository
	principals  repository.PrincipalRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCacheReconciler constructs a CacheReconciler over the cache repositories.
func NewCacheReconciler(
	courses repository.CourseRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	roster repository.RosterRepository,
	principals repository.PrincipalRepository,
	logger zerolog.Logger,
) CacheReconciler {
	return &cacheReconciler{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
		roster:      roster,
		principals:  principals,
		logger:      logger.With().Str("component", "cache_reconciler").Logger(),
		now:         time.Now,
	}
}

func (r *cacheReconciler) UpsertCourse(ctx context.Context, course classroom.Course) (models.Course, error) {
	record := models.Course{
		ExternalID: course.ID,
		Name:       course.Name,
		Section:    course.Section,
		TeacherID:  r.resolvePrincipal(ctx, course.OwnerID),
		State:      course.CourseState,
		CachedAt:   r.now(),
	}
	if !course.CreationTime.IsZero() {
		created := course.CreationTime
		record.CreationTime = &created
	}
	if !course.UpdateTime.IsZero() {
		updated := course.UpdateTime
		record.UpdateTime = &updated
	}

	return record, r.persist(ctx, "course", func(ctx context.Context) error {
		return r.courses.Upsert(ctx, &record)
	})
}

func (r *cacheReconciler) UpsertAssignment(ctx context.Context, work classroom.CourseWork) (models.Assignment, error) {
	record := models.Assignment{
		ExternalID:   work.ID,
		CourseID:     work.CourseID,
		Title:        work.Title,
		State:        work.State,
		MaxPoints:    work.MaxPoints,
		AssigneeMode: work.AssigneeMode,
		CachedAt:     r.now(),
	}
	if record.AssigneeMode == "" {
		record.AssigneeMode = models.AssigneeModeAll
	}
	if work.AssigneeMode == models.AssigneeModeIndividual && work.IndividualStudentsOptions != nil {
		record.AudienceIDs = datatypes.JSONSlice[string](work.IndividualStudentsOptions.StudentIDs)
	}
	if work.DueDate != nil && !work.DueDate.IsZero() {
		due := work.DueDate.Time()
		record.DueDate = &due
	}
	if !work.CreationTime.IsZero() {
		created := work.CreationTime
		record.CreationTime = &created
	}

	return record, r.persist(ctx, "assignment", func(ctx context.Context) error {
		return r.assignments.Upsert(ctx, &record)
	})
}

func (r *cacheReconciler) UpsertSubmission(ctx context.Context, submission classroom.StudentSubmission) (models.Submission, error) {
	record := models.Submission{
		ExternalID:        submission.ID,
		AssignmentID:      submission.CourseWorkID,
		CourseID:          submission.CourseID,
		PrincipalID:       r.resolvePrincipal(ctx, submission.UserID),
		StudentExternalID: submission.UserID,
		State:             submission.State,
		Late:              submission.Late,
		DraftGrade:        submission.DraftGrade,
		AssignedGrade:     submission.AssignedGrade,
		CachedAt:          r.now(),
	}
	if !submission.UpdateTime.IsZero() {
		submitted := submission.UpdateTime
		record.SubmittedAt = &submitted
	}

	return record, r.persist(ctx, "submission", func(ctx context.Context) error {
		return r.submissions.Upsert(ctx, &record)
	})
}

func (r *cacheReconciler) UpsertRosterEntry(ctx context.Context, student classroom.Student) (models.RosterEntry, error) {
	record := models.RosterEntry{
		CourseID:          student.CourseID,
		StudentExternalID: student.UserID,
		PrincipalID:       r.resolvePrincipal(ctx, student.UserID),
		Name:              student.Profile.Name.FullName,
		Email:             student.Profile.EmailAddress,
		CachedAt:          r.now(),
	}

	return record, r.persist(ctx, "roster_entry", func(ctx context.Context) error {
		return r.roster.Upsert(ctx, &record)
	})
}

// resolvePrincipal maps an upstream user id to the local principal id, or nil
// when the user has not been provisioned yet. The reference is resolved at
// upsert time only; it is not backfilled when the principal appears later.
func (r *cacheReconciler) resolvePrincipal(ctx context.Context, externalID string) *string {
	if externalID == "" {
		return nil
	}

	principal, err := r.principals.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn().Err(err).Str("external_id", externalID).Msg("principal lookup failed during reconcile")
		}
		return nil
	}

	return &principal.ID
}

func (r *cacheReconciler) persist(ctx context.Context, entity string, write func(context.Context) error) error {
	if err := write(ctx); err != nil {
		observability.CacheUpsertFailures().WithLabelValues(entity).Inc()
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, entity, err)
	}

	observability.CacheUpserts().WithLabelValues(entity).Inc()
	return nil
}
