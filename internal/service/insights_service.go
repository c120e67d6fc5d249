package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
)

// At-risk thresholds. A student is flagged when their average effective
// grade drops below the grade floor or when more than the late ceiling of
// their delivered work was late.
const (
	atRiskGradeFloor  = 70.0
	atRiskLateCeiling = 30
)

// InsightsService computes analytics purely from cached rows, without
// touching the upstream service. Results reflect the last sync, which makes
// them cheap but potentially stale; responses are labelled with the cache
// source so callers can tell.
type InsightsService interface {
	CourseCompletionFromCache(ctx context.Context, courseID string) (dto.CourseCompletionResponse, error)
	TeacherOverview(ctx context.Context, teacherID string) (dto.TeacherOverviewResponse, error)
	AtRiskStudents(ctx context.Context, teacherID string) (dto.AtRiskResponse, error)
}

type insightsService struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	roster      repository.RosterRepository
	principals  repository.PrincipalRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewInsightsService constructs the cache-only analytics service.
func NewInsightsService(
	courses repository.CourseRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	roster repository.RosterRepository,
	principals repository.PrincipalRepository,
	logger zerolog.Logger,
) InsightsService {
	return &insightsService{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
		roster:      roster,
		principals:  principals,
		logger:      logger.With().Str("component", "insights_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/classmirror-api/internal/service/insights"),
		now:         time.Now,
	}
}

func (s *insightsService) CourseCompletionFromCache(ctx context.Context, courseID string) (dto.CourseCompletionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "insights.course_completion",
		trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	course, err := s.courses.GetByExternalID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseCompletionResponse{}, ErrCourseNotFound
		}
		span.RecordError(err)
		return dto.CourseCompletionResponse{}, err
	}

	data, err := s.loadCourseData(ctx, course)
	if err != nil {
		span.RecordError(err)
		return dto.CourseCompletionResponse{}, err
	}

	considered, completed := courseCompletionFromCache(data)
	response := dto.CourseCompletionResponse{
		CourseID:           course.ExternalID,
		CourseName:         course.Name,
		ConsideredStudents: considered,
		CompletedStudents:  completed,
		CompletionRate:     roundPercent(completed, considered),
		Source:             dto.CompletionSourceCache,
		ComputedAt:         s.now(),
	}
	span.SetAttributes(
		attribute.Int("completion.considered", considered),
		attribute.Int("completion.rate", response.CompletionRate),
	)

	return response, nil
}

// TeacherOverview sums completion across a teacher's cached courses. The
// overall rate weighs every applicable (student, assignment) pair equally, so
// a large course moves it more than a small one.
func (s *insightsService) TeacherOverview(ctx context.Context, teacherID string) (dto.TeacherOverviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "insights.teacher_overview",
		trace.WithAttributes(attribute.String("teacher.id", teacherID)))
	defer span.End()

	teacher, err := s.principals.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeacherOverviewResponse{}, ErrTeacherNotFound
		}
		span.RecordError(err)
		return dto.TeacherOverviewResponse{}, err
	}

	courses, err := s.courses.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		span.RecordError(err)
		return dto.TeacherOverviewResponse{}, err
	}

	response := dto.TeacherOverviewResponse{
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		Courses:     make([]dto.CourseCompletionSummary, 0, len(courses)),
		ComputedAt:  s.now(),
	}

	var totalPairs, deliveredPairs int
	for _, course := range courses {
		data, err := s.loadCourseData(ctx, course)
		if err != nil {
			span.RecordError(err)
			return dto.TeacherOverviewResponse{}, err
		}

		considered, completed := courseCompletion(data)
		response.Courses = append(response.Courses, dto.CourseCompletionSummary{
			CourseID:           course.ExternalID,
			CourseName:         course.Name,
			Section:            course.Section,
			AssignmentCount:    len(data.assignments),
			ConsideredStudents: considered,
			CompletionRate:     roundPercent(completed, considered),
		})

		for _, entry := range data.roster {
			for _, assignment := range data.applicable(entry.StudentExternalID) {
				totalPairs++
				if data.delivered(assignment.ExternalID, entry.StudentExternalID) {
					deliveredPairs++
				}
			}
		}
	}

	response.OverallRate = roundPercent(deliveredPairs, totalPairs)
	span.SetAttributes(
		attribute.Int("overview.courses", len(response.Courses)),
		attribute.Int("overview.overall_rate", response.OverallRate),
	)

	return response, nil
}

// AtRiskStudents flags students in the teacher's cached courses whose grade
// average or late share crosses the thresholds. Students with no applicable
// assignments are never flagged.
func (s *insightsService) AtRiskStudents(ctx context.Context, teacherID string) (dto.AtRiskResponse, error) {
	ctx, span := s.tracer.Start(ctx, "insights.at_risk",
		trace.WithAttributes(attribute.String("teacher.id", teacherID)))
	defer span.End()

	teacher, err := s.principals.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AtRiskResponse{}, ErrTeacherNotFound
		}
		span.RecordError(err)
		return dto.AtRiskResponse{}, err
	}

	courses, err := s.courses.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		span.RecordError(err)
		return dto.AtRiskResponse{}, err
	}

	response := dto.AtRiskResponse{
		TeacherID:  teacher.ID,
		ComputedAt: s.now(),
	}

	for _, course := range courses {
		data, err := s.loadCourseData(ctx, course)
		if err != nil {
			span.RecordError(err)
			return dto.AtRiskResponse{}, err
		}

		for _, entry := range data.roster {
			if flagged, ok := s.assessStudent(data, entry); ok {
				response.Students = append(response.Students, flagged)
			}
		}
	}

	sort.Slice(response.Students, func(i, j int) bool {
		if response.Students[i].Name != response.Students[j].Name {
			return response.Students[i].Name < response.Students[j].Name
		}
		return response.Students[i].CourseID < response.Students[j].CourseID
	})
	span.SetAttributes(attribute.Int("at_risk.students", len(response.Students)))

	return response, nil
}

func (s *insightsService) assessStudent(data courseData, entry models.RosterEntry) (dto.AtRiskStudent, bool) {
	applicable := data.applicable(entry.StudentExternalID)
	if len(applicable) == 0 {
		return dto.AtRiskStudent{}, false
	}

	var delivered int
	var graded []models.Submission
	for _, assignment := range applicable {
		submission, ok := data.submission(assignment.ExternalID, entry.StudentExternalID)
		if !ok {
			continue
		}
		graded = append(graded, submission)
		if submission.Delivered() {
			delivered++
		}
	}

	average := averageGrade(graded)
	late := lateShare(data, entry.StudentExternalID, applicable)

	var reasons []string
	if average != nil && *average < atRiskGradeFloor {
		reasons = append(reasons, "low average grade")
	}
	if late > atRiskLateCeiling {
		reasons = append(reasons, "frequent late delivery")
	}
	if len(reasons) == 0 {
		return dto.AtRiskStudent{}, false
	}

	return dto.AtRiskStudent{
		StudentID:         entry.StudentExternalID,
		Name:              entry.Name,
		CourseID:          data.course.ExternalID,
		CourseName:        data.course.Name,
		CompletionPercent: roundPercent(delivered, len(applicable)),
		AverageGrade:      average,
		LateShare:         late,
		Reasons:           reasons,
	}, true
}

func (s *insightsService) loadCourseData(ctx context.Context, course models.Course) (courseData, error) {
	assignments, err := s.assignments.ListPublishedByCourse(ctx, course.ExternalID)
	if err != nil {
		return courseData{}, err
	}
	roster, err := s.roster.ListByCourse(ctx, course.ExternalID)
	if err != nil {
		return courseData{}, err
	}
	courseID := course.ExternalID
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{CourseID: &courseID})
	if err != nil {
		return courseData{}, err
	}

	return newCourseData(course, assignments, roster, submissions), nil
}
