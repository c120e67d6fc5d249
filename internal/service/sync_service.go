package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/observability"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
)

// ClassroomAPI is the slice of the upstream client the sync layer consumes.
// *classroom.Client satisfies it.
type ClassroomAPI interface {
	ListCourses(ctx context.Context, accessToken string, scope classroom.CourseScope) ([]classroom.Course, error)
	GetCourse(ctx context.Context, accessToken, courseID string) (classroom.Course, error)
	ListCourseWork(ctx context.Context, accessToken, courseID string) ([]classroom.CourseWork, error)
	ListSubmissions(ctx context.Context, accessToken, courseID, courseWorkID, userID string) ([]classroom.StudentSubmission, error)
	ListStudents(ctx context.Context, accessToken, courseID string) ([]classroom.Student, error)
	ListTeachers(ctx context.Context, accessToken, courseID string) ([]classroom.Teacher, error)
}

// CourseSnapshot bundles everything the analytics engine needs for one
// course, fetched live and already reconciled into the cache.
type CourseSnapshot struct {
	Course      models.Course
	Assignments []models.Assignment
	Roster      []models.RosterEntry
	Submissions []models.Submission
}

// SyncService is the upstream access layer. Every operation obtains a valid
// credential first, exhausts pagination, and write-through reconciles each
// fetched record into the cache before returning, so callers can assume the
// cache reflects what was just fetched. Cache write failures never fail a
// fetch; fetch errors propagate untouched.
type SyncService interface {
	ListCourses(ctx context.Context, principalID string, scope classroom.CourseScope) ([]models.Course, error)
	GetCourse(ctx context.Context, principalID, courseID string) (models.Course, error)
	ListAssignments(ctx context.Context, principalID, courseID string) ([]models.Assignment, error)
	ListSubmissions(ctx context.Context, principalID, courseID, assignmentID, studentID string) ([]models.Submission, error)
	ListRoster(ctx context.Context, principalID, courseID string) ([]models.RosterEntry, error)
	ListCoTeachers(ctx context.Context, principalID, courseID string) ([]classroom.Teacher, error)
	CourseSnapshot(ctx context.Context, principalID, courseID string) (CourseSnapshot, error)
	SyncCourse(ctx context.Context, principalID, courseID string) error
}

type syncService struct {
	api        ClassroomAPI
	tokens     TokenService
	reconciler CacheReconciler
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// writeSink receives cache write failures from fetch helpers. Write-through
// paths log and swallow them; SyncCourse collects them instead.
type writeSink func(err error, key string)

// NewSyncService constructs the sync layer.
func NewSyncService(api ClassroomAPI, tokens TokenService, reconciler CacheReconciler, logger zerolog.Logger) SyncService {
	return &syncService{
		api:        api,
		tokens:     tokens,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "sync_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/classmirror-api/internal/service/sync"),
	}
}

func (s *syncService) ListCourses(ctx context.Context, principalID string, scope classroom.CourseScope) ([]models.Course, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return s.fetchCourses(ctx, credential, scope, s.logWriteFailure)
}

func (s *syncService) GetCourse(ctx context.Context, principalID, courseID string) (models.Course, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return models.Course{}, err
	}

	return s.fetchCourse(ctx, credential, courseID, s.logWriteFailure)
}

func (s *syncService) ListAssignments(ctx context.Context, principalID, courseID string) ([]models.Assignment, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return s.fetchAssignments(ctx, credential, courseID, s.logWriteFailure)
}

func (s *syncService) ListSubmissions(ctx context.Context, principalID, courseID, assignmentID, studentID string) ([]models.Submission, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return s.fetchSubmissions(ctx, credential, courseID, assignmentID, studentID, s.logWriteFailure)
}

func (s *syncService) ListRoster(ctx context.Context, principalID, courseID string) ([]models.RosterEntry, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return s.fetchRoster(ctx, credential, courseID, s.logWriteFailure)
}

// ListCoTeachers returns the co-teachers of a course. Teachers are not a
// cached entity, so there is no write-through step.
func (s *syncService) ListCoTeachers(ctx context.Context, principalID, courseID string) ([]classroom.Teacher, error) {
	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		return nil, err
	}

	teachers, err := s.api.ListTeachers(ctx, credential.AccessToken, courseID)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("teacher", "error").Inc()
		return nil, err
	}

	observability.UpstreamFetches().WithLabelValues("teacher", "ok").Inc()
	return teachers, nil
}

// CourseSnapshot fetches course, assignments, roster and all submissions
// concurrently and joins them before returning. Independent fetches have no
// ordering requirement between each other, but each completes its own
// write-through before its results are used.
func (s *syncService) CourseSnapshot(ctx context.Context, principalID, courseID string) (CourseSnapshot, error) {
	return s.courseSnapshot(ctx, principalID, courseID, s.logWriteFailure)
}

func (s *syncService) courseSnapshot(ctx context.Context, principalID, courseID string, sink writeSink) (CourseSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "sync.course_snapshot",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		span.RecordError(err)
		return CourseSnapshot{}, err
	}

	var snapshot CourseSnapshot

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		course, err := s.fetchCourse(groupCtx, credential, courseID, sink)
		if err != nil {
			return err
		}
		snapshot.Course = course
		return nil
	})
	group.Go(func() error {
		assignments, err := s.fetchAssignments(groupCtx, credential, courseID, sink)
		if err != nil {
			return err
		}
		snapshot.Assignments = assignments
		return nil
	})
	group.Go(func() error {
		roster, err := s.fetchRoster(groupCtx, credential, courseID, sink)
		if err != nil {
			return err
		}
		snapshot.Roster = roster
		return nil
	})
	group.Go(func() error {
		submissions, err := s.fetchSubmissions(groupCtx, credential, courseID, classroom.AllCourseWork, "", sink)
		if err != nil {
			return err
		}
		snapshot.Submissions = submissions
		return nil
	})

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		return CourseSnapshot{}, err
	}

	span.SetAttributes(
		attribute.Int("snapshot.assignments", len(snapshot.Assignments)),
		attribute.Int("snapshot.roster", len(snapshot.Roster)),
		attribute.Int("snapshot.submissions", len(snapshot.Submissions)),
	)

	return snapshot, nil
}

// SyncCourse force-refreshes one course's cache. Unlike the write-through
// paths, a failed upsert here fails the operation: populating the cache is
// the whole point of the call.
func (s *syncService) SyncCourse(ctx context.Context, principalID, courseID string) error {
	var (
		mu       sync.Mutex
		writeErr error
	)
	collect := func(err error, key string) {
		s.logWriteFailure(err, key)
		mu.Lock()
		writeErr = errors.Join(writeErr, err)
		mu.Unlock()
	}

	snapshot, err := s.courseSnapshot(ctx, principalID, courseID, collect)
	if err != nil {
		return err
	}

	if writeErr != nil {
		return writeErr
	}

	s.logger.Info().
		Str("course_id", snapshot.Course.ExternalID).
		Int("assignments", len(snapshot.Assignments)).
		Int("submissions", len(snapshot.Submissions)).
		Msg("course cache refreshed")

	return nil
}

func (s *syncService) fetchCourses(ctx context.Context, credential models.Credential, scope classroom.CourseScope, sink writeSink) ([]models.Course, error) {
	courses, err := s.api.ListCourses(ctx, credential.AccessToken, scope)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("course", "error").Inc()
		return nil, err
	}
	observability.UpstreamFetches().WithLabelValues("course", "ok").Inc()

	records := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		record, err := s.reconciler.UpsertCourse(ctx, course)
		if err != nil {
			sink(err, course.ID)
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *syncService) fetchCourse(ctx context.Context, credential models.Credential, courseID string, sink writeSink) (models.Course, error) {
	course, err := s.api.GetCourse(ctx, credential.AccessToken, courseID)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("course", "error").Inc()
		return models.Course{}, err
	}
	observability.UpstreamFetches().WithLabelValues("course", "ok").Inc()

	record, err := s.reconciler.UpsertCourse(ctx, course)
	if err != nil {
		sink(err, course.ID)
	}

	return record, nil
}

func (s *syncService) fetchAssignments(ctx context.Context, credential models.Credential, courseID string, sink writeSink) ([]models.Assignment, error) {
	work, err := s.api.ListCourseWork(ctx, credential.AccessToken, courseID)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("assignment", "error").Inc()
		return nil, err
	}
	observability.UpstreamFetches().WithLabelValues("assignment", "ok").Inc()

	records := make([]models.Assignment, 0, len(work))
	for _, item := range work {
		record, err := s.reconciler.UpsertAssignment(ctx, item)
		if err != nil {
			sink(err, item.ID)
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *syncService) fetchSubmissions(ctx context.Context, credential models.Credential, courseID, assignmentID, studentID string, sink writeSink) ([]models.Submission, error) {
	submissions, err := s.api.ListSubmissions(ctx, credential.AccessToken, courseID, assignmentID, studentID)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("submission", "error").Inc()
		return nil, err
	}
	observability.UpstreamFetches().WithLabelValues("submission", "ok").Inc()

	records := make([]models.Submission, 0, len(submissions))
	for _, submission := range submissions {
		record, err := s.reconciler.UpsertSubmission(ctx, submission)
		if err != nil {
			sink(err, submission.ID)
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *syncService) fetchRoster(ctx context.Context, credential models.Credential, courseID string, sink writeSink) ([]models.RosterEntry, error) {
	students, err := s.api.ListStudents(ctx, credential.AccessToken, courseID)
	if err != nil {
		observability.UpstreamFetches().WithLabelValues("roster_entry", "error").Inc()
		return nil, err
	}
	observability.UpstreamFetches().WithLabelValues("roster_entry", "ok").Inc()

	records := make([]models.RosterEntry, 0, len(students))
	for _, student := range students {
		record, err := s.reconciler.UpsertRosterEntry(ctx, student)
		if err != nil {
			sink(err, student.UserID)
		}
		records = append(records, record)
	}

	return records, nil
}

// logWriteFailure records a swallowed write-through cache failure. The live
// data was fetched successfully, so the overall operation still succeeds.
func (s *syncService) logWriteFailure(err error, key string) {
	if errors.Is(err, ErrCacheWrite) {
		s.logger.Warn().Err(err).Str("key", key).Msg("write-through cache upsert failed")
		return
	}
	s.logger.Error().Err(err).Str("key", key).Msg("unexpected reconcile failure")
}
