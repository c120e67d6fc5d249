package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
	"github.com/noah-isme/classmirror-api/pkg/directory"
)

// DirectoryLookup resolves institution directory profiles. *directory.Client
// satisfies it.
type DirectoryLookup interface {
	GetUser(ctx context.Context, accessToken, externalID string) (directory.User, error)
}

// ProgressService computes completion analytics from live course snapshots.
// Every operation refreshes the cache as a side effect of the snapshot fetch
// and short-caches its aggregate in redis.
type ProgressService interface {
	CourseProgress(ctx context.Context, principalID, courseID string) (dto.CourseProgressResponse, error)
	AssignmentProgress(ctx context.Context, principalID, courseID string) (dto.AssignmentProgressResponse, error)
	StudentCourseSummary(ctx context.Context, principalID, courseID string) (dto.StudentCourseSummary, error)
	CourseCompletion(ctx context.Context, principalID, courseID string) (dto.CourseCompletionResponse, error)
	StudentsOverview(ctx context.Context, principalID string) (dto.StudentsOverviewResponse, error)
}

type progressService struct {
	sync       SyncService
	tokens     TokenService
	principals repository.PrincipalRepository
	dir        DirectoryLookup
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewProgressService constructs the live analytics service. dir may be nil
// when no directory integration is configured.
func NewProgressService(
	syncSvc SyncService,
	tokens TokenService,
	principals repository.PrincipalRepository,
	dir DirectoryLookup,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		sync:       syncSvc,
		tokens:     tokens,
		principals: principals,
		dir:        dir,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "progress_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/classmirror-api/internal/service/progress"),
		now:        time.Now,
	}
}

func (s *progressService) CourseProgress(ctx context.Context, principalID, courseID string) (dto.CourseProgressResponse, error) {
	cacheKey := fmt.Sprintf("progress:course:%s", courseID)
	ctx, span := s.tracer.Start(ctx, "progress.course",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	var cached dto.CourseProgressResponse
	if s.readCache(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("progress.cache_hit", true))
		return cached, nil
	}

	data, err := s.snapshotData(ctx, principalID, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot_failed")
		return dto.CourseProgressResponse{}, err
	}

	response := dto.CourseProgressResponse{
		CourseID:   data.course.ExternalID,
		CourseName: data.course.Name,
		Students:   buildStudentProgress(data),
		FetchedAt:  s.now(),
	}
	span.SetAttributes(attribute.Int("progress.students", len(response.Students)))

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *progressService) AssignmentProgress(ctx context.Context, principalID, courseID string) (dto.AssignmentProgressResponse, error) {
	cacheKey := fmt.Sprintf("progress:assignments:%s", courseID)
	ctx, span := s.tracer.Start(ctx, "progress.assignments",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	var cached dto.AssignmentProgressResponse
	if s.readCache(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("progress.cache_hit", true))
		return cached, nil
	}

	data, err := s.snapshotData(ctx, principalID, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot_failed")
		return dto.AssignmentProgressResponse{}, err
	}

	response := dto.AssignmentProgressResponse{
		CourseID:    data.course.ExternalID,
		CourseName:  data.course.Name,
		Assignments: buildAssignmentProgress(data),
		FetchedAt:   s.now(),
	}

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

// StudentCourseSummary is the student's own view: only their submissions are
// fetched, and pending status is derived against the current time.
func (s *progressService) StudentCourseSummary(ctx context.Context, principalID, courseID string) (dto.StudentCourseSummary, error) {
	cacheKey := fmt.Sprintf("progress:summary:%s:%s", courseID, principalID)
	ctx, span := s.tracer.Start(ctx, "progress.student_summary",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	var cached dto.StudentCourseSummary
	if s.readCache(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("progress.cache_hit", true))
		return cached, nil
	}

	principal, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		span.RecordError(err)
		return dto.StudentCourseSummary{}, ErrPrincipalNotFound
	}

	course, err := s.sync.GetCourse(ctx, principalID, courseID)
	if err != nil {
		span.RecordError(err)
		return dto.StudentCourseSummary{}, err
	}
	assignments, err := s.sync.ListAssignments(ctx, principalID, courseID)
	if err != nil {
		span.RecordError(err)
		return dto.StudentCourseSummary{}, err
	}
	submissions, err := s.sync.ListSubmissions(ctx, principalID, courseID, classroom.AllCourseWork, principal.ExternalID)
	if err != nil {
		span.RecordError(err)
		return dto.StudentCourseSummary{}, err
	}

	roster := []models.RosterEntry{{CourseID: courseID, StudentExternalID: principal.ExternalID, Name: principal.Name, Email: principal.Email}}
	data := newCourseData(course, assignments, roster, submissions)

	response := buildStudentSummary(data, principal.ExternalID, s.now())
	response.FetchedAt = s.now()

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *progressService) CourseCompletion(ctx context.Context, principalID, courseID string) (dto.CourseCompletionResponse, error) {
	cacheKey := fmt.Sprintf("progress:completion:%s", courseID)
	ctx, span := s.tracer.Start(ctx, "progress.completion",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	var cached dto.CourseCompletionResponse
	if s.readCache(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("progress.cache_hit", true))
		return cached, nil
	}

	data, err := s.snapshotData(ctx, principalID, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot_failed")
		return dto.CourseCompletionResponse{}, err
	}

	considered, completed := courseCompletion(data)
	response := dto.CourseCompletionResponse{
		CourseID:           data.course.ExternalID,
		CourseName:         data.course.Name,
		ConsideredStudents: considered,
		CompletedStudents:  completed,
		CompletionRate:     roundPercent(completed, considered),
		Source:             dto.CompletionSourceLive,
		ComputedAt:         s.now(),
	}
	span.SetAttributes(
		attribute.Int("completion.considered", considered),
		attribute.Int("completion.rate", response.CompletionRate),
	)

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

// StudentsOverview aggregates every student across the teacher's active
// courses. Missing emails are backfilled from the institution directory on a
// best effort basis; lookup failures only lose the email.
func (s *progressService) StudentsOverview(ctx context.Context, principalID string) (dto.StudentsOverviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "progress.students_overview")
	defer span.End()

	courses, err := s.sync.ListCourses(ctx, principalID, classroom.ScopeTeaching)
	if err != nil {
		span.RecordError(err)
		return dto.StudentsOverviewResponse{}, err
	}

	overview := make(map[string]*dto.StudentOverview)
	grades := make(map[string]*gradeTally)
	for _, course := range courses {
		if course.State != models.CourseStateActive {
			continue
		}

		data, err := s.snapshotData(ctx, principalID, course.ExternalID)
		if err != nil {
			span.RecordError(err)
			return dto.StudentsOverviewResponse{}, err
		}

		s.mergeCourseOverview(overview, grades, data)
	}

	students := make([]dto.StudentOverview, 0, len(overview))
	for studentID, student := range overview {
		student.CompletionPercent = roundPercent(student.Submitted, student.TotalAssignments)
		student.AverageGrade = grades[studentID].average()
		students = append(students, *student)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].StudentID < students[j].StudentID
	})

	s.backfillEmails(ctx, principalID, students)
	span.SetAttributes(attribute.Int("overview.students", len(students)))

	return dto.StudentsOverviewResponse{
		TeacherID: principalID,
		Students:  students,
		FetchedAt: s.now(),
	}, nil
}

// gradeTally accumulates effective grades across courses so the cross-course
// average is a single pooled mean rather than an average of per-course
// averages.
type gradeTally struct {
	sum   float64
	count int
}

func (g *gradeTally) add(grade float64) {
	g.sum += grade
	g.count++
}

func (g *gradeTally) average() *float64 {
	if g == nil || g.count == 0 {
		return nil
	}
	average := math.Round(g.sum/float64(g.count)*100) / 100
	return &average
}

// mergeCourseOverview folds one course's per-student aggregates into the
// cross-course map, pooling every effective grade into the student's tally.
func (s *progressService) mergeCourseOverview(overview map[string]*dto.StudentOverview, grades map[string]*gradeTally, data courseData) {
	for _, entry := range data.roster {
		student, ok := overview[entry.StudentExternalID]
		if !ok {
			student = &dto.StudentOverview{
				StudentID: entry.StudentExternalID,
				Name:      entry.Name,
				Email:     entry.Email,
			}
			overview[entry.StudentExternalID] = student
		}
		if student.Email == "" {
			student.Email = entry.Email
		}
		student.Courses = append(student.Courses, data.course.Name)

		for _, assignment := range data.applicable(entry.StudentExternalID) {
			student.TotalAssignments++
			submission, ok := data.submission(assignment.ExternalID, entry.StudentExternalID)
			if ok {
				if grade := submission.EffectiveGrade(); grade != nil {
					tally := grades[entry.StudentExternalID]
					if tally == nil {
						tally = &gradeTally{}
						grades[entry.StudentExternalID] = tally
					}
					tally.add(*grade)
				}
			}
			if ok && submission.Delivered() {
				student.Submitted++
				continue
			}
			student.Missing = append(student.Missing, dto.MissingAssignment{
				CourseID:     data.course.ExternalID,
				CourseName:   data.course.Name,
				AssignmentID: assignment.ExternalID,
				Title:        assignment.Title,
				DueDate:      assignment.DueDate,
			})
		}
	}
}

// backfillEmails fills missing student emails from the directory. Failures
// are logged at debug level and otherwise ignored.
func (s *progressService) backfillEmails(ctx context.Context, principalID string, students []dto.StudentOverview) {
	if s.dir == nil {
		return
	}

	credential, err := s.tokens.ObtainCredential(ctx, principalID)
	if err != nil {
		s.logger.Debug().Err(err).Msg("skipping directory backfill, no usable credential")
		return
	}

	for i := range students {
		if students[i].Email != "" {
			continue
		}
		user, err := s.dir.GetUser(ctx, credential.AccessToken, students[i].StudentID)
		if err != nil {
			s.logger.Debug().Err(err).Str("student_id", students[i].StudentID).Msg("directory lookup failed")
			continue
		}
		students[i].Email = user.PrimaryEmail
		if students[i].Name == "" {
			students[i].Name = user.Name.FullName
		}
	}
}

func (s *progressService) snapshotData(ctx context.Context, principalID, courseID string) (courseData, error) {
	snapshot, err := s.sync.CourseSnapshot(ctx, principalID, courseID)
	if err != nil {
		return courseData{}, err
	}
	return newCourseData(snapshot.Course, snapshot.Assignments, snapshot.Roster, snapshot.Submissions), nil
}

func (s *progressService) readCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read analytics cache")
		}
		return false
	}

	return json.Unmarshal([]byte(cached), out) == nil
}

func (s *progressService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store analytics cache")
	}
}
