package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
	"github.com/noah-isme/classmirror-api/pkg/directory"
)

// stubSync serves canned snapshots without touching any upstream.
type stubSync struct {
	snapshots   map[string]CourseSnapshot
	courses     []models.Course
	submissions []models.Submission
}

func (s *stubSync) ListCourses(_ context.Context, _ string, _ classroom.CourseScope) ([]models.Course, error) {
	return s.courses, nil
}

func (s *stubSync) GetCourse(_ context.Context, _, courseID string) (models.Course, error) {
	if snapshot, ok := s.snapshots[courseID]; ok {
		return snapshot.Course, nil
	}
	return models.Course{}, classroom.ErrRejected
}

func (s *stubSync) ListAssignments(_ context.Context, _, courseID string) ([]models.Assignment, error) {
	return s.snapshots[courseID].Assignments, nil
}

func (s *stubSync) ListSubmissions(_ context.Context, _, _, _, _ string) ([]models.Submission, error) {
	return s.submissions, nil
}

func (s *stubSync) ListRoster(_ context.Context, _, courseID string) ([]models.RosterEntry, error) {
	return s.snapshots[courseID].Roster, nil
}

func (s *stubSync) ListCoTeachers(_ context.Context, _, _ string) ([]classroom.Teacher, error) {
	return nil, nil
}

func (s *stubSync) CourseSnapshot(_ context.Context, _, courseID string) (CourseSnapshot, error) {
	snapshot, ok := s.snapshots[courseID]
	if !ok {
		return CourseSnapshot{}, classroom.ErrUnavailable
	}
	return snapshot, nil
}

func (s *stubSync) SyncCourse(_ context.Context, _, _ string) error {
	return nil
}

type stubDirectory struct {
	users map[string]directory.User
	calls int
}

func (s *stubDirectory) GetUser(_ context.Context, _, externalID string) (directory.User, error) {
	s.calls++
	user, ok := s.users[externalID]
	if !ok {
		return directory.User{}, fmt.Errorf("user %s not found", externalID)
	}
	return user, nil
}

func newProgressTestCache(t *testing.T) *redis.Client {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	return redis.NewClient(&redis.Options{Addr: mini.Addr()})
}

func newPrincipalTestRepo(t *testing.T, name string) repository.PrincipalRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Principal{}))

	return repository.NewPrincipalRepository(db)
}

func snapshotWithOneDelivered() CourseSnapshot {
	return CourseSnapshot{
		Course: models.Course{ExternalID: "c-1", Name: "Algebra", State: models.CourseStateActive},
		Assignments: []models.Assignment{
			publishedAssignment("a-1", "c-1"),
			publishedAssignment("a-2", "c-1"),
		},
		Roster: rosterOf("c-1", "s-1", "s-2"),
		Submissions: []models.Submission{
			submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
			submissionIn("c-1", "a-2", "s-1", models.SubmissionStateReturned),
			submissionIn("c-1", "a-1", "s-2", models.SubmissionStateCreated),
		},
	}
}

func TestCourseProgressComputesAndCaches(t *testing.T) {
	cache := newProgressTestCache(t)
	stub := &stubSync{snapshots: map[string]CourseSnapshot{"c-1": snapshotWithOneDelivered()}}
	svc := NewProgressService(stub, nil, nil, nil, cache, time.Minute, zerolog.Nop())

	ctx := context.Background()
	first, err := svc.CourseProgress(ctx, "p-1", "c-1")
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Len(t, first.Students, 2)
	require.Equal(t, 100, first.Students[0].CompletionPercent)
	require.Equal(t, 0, first.Students[1].CompletionPercent)

	// Mutate the upstream; the cached aggregate must win within the TTL.
	stub.snapshots["c-1"] = CourseSnapshot{Course: models.Course{ExternalID: "c-1", Name: "Changed"}}

	second, err := svc.CourseProgress(ctx, "p-1", "c-1")
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.CourseName, second.CourseName)
	require.Len(t, second.Students, 2)
}

func TestCourseCompletionLiveSource(t *testing.T) {
	cache := newProgressTestCache(t)
	stub := &stubSync{snapshots: map[string]CourseSnapshot{"c-1": snapshotWithOneDelivered()}}
	svc := NewProgressService(stub, nil, nil, nil, cache, time.Minute, zerolog.Nop())

	response, err := svc.CourseCompletion(context.Background(), "p-1", "c-1")
	require.NoError(t, err)
	require.Equal(t, dto.CompletionSourceLive, response.Source)
	require.Equal(t, 2, response.ConsideredStudents)
	require.Equal(t, 1, response.CompletedStudents)
	require.Equal(t, 50, response.CompletionRate)
}

func TestCourseProgressPropagatesSnapshotError(t *testing.T) {
	cache := newProgressTestCache(t)
	stub := &stubSync{snapshots: map[string]CourseSnapshot{}}
	svc := NewProgressService(stub, nil, nil, nil, cache, time.Minute, zerolog.Nop())

	_, err := svc.CourseProgress(context.Background(), "p-1", "c-missing")
	require.ErrorIs(t, err, classroom.ErrUnavailable)
}

func TestStudentsOverviewMergesCoursesAndBackfillsEmail(t *testing.T) {
	cache := newProgressTestCache(t)

	courseOne := snapshotWithOneDelivered()
	courseTwo := CourseSnapshot{
		Course:      models.Course{ExternalID: "c-2", Name: "Biology", State: models.CourseStateActive},
		Assignments: []models.Assignment{publishedAssignment("b-1", "c-2")},
		Roster:      rosterOf("c-2", "s-1"),
		Submissions: []models.Submission{
			submissionIn("c-2", "b-1", "s-1", models.SubmissionStateTurnedIn),
		},
	}
	archived := CourseSnapshot{
		Course: models.Course{ExternalID: "c-3", Name: "Old", State: models.CourseStateArchived},
	}

	stub := &stubSync{
		snapshots: map[string]CourseSnapshot{"c-1": courseOne, "c-2": courseTwo, "c-3": archived},
		courses: []models.Course{
			courseOne.Course,
			courseTwo.Course,
			archived.Course,
		},
	}

	tokens := &fakeTokens{credential: models.Credential{AccessToken: "tok"}}
	dir := &stubDirectory{users: map[string]directory.User{
		"s-1": {PrimaryEmail: "s1@school.edu"},
		"s-2": {PrimaryEmail: "s2@school.edu"},
	}}

	svc := NewProgressService(stub, tokens, nil, dir, cache, time.Minute, zerolog.Nop())

	overview, err := svc.StudentsOverview(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, overview.Students, 2)

	byID := map[string]dto.StudentOverview{}
	for _, student := range overview.Students {
		byID[student.StudentID] = student
	}

	// s-1 spans both active courses; the archived one is skipped.
	require.ElementsMatch(t, []string{"Algebra", "Biology"}, byID["s-1"].Courses)
	require.Equal(t, 3, byID["s-1"].TotalAssignments)
	require.Equal(t, 3, byID["s-1"].Submitted)
	require.Equal(t, 100, byID["s-1"].CompletionPercent)

	require.Equal(t, 2, byID["s-2"].TotalAssignments)
	require.Equal(t, 0, byID["s-2"].Submitted)
	require.Len(t, byID["s-2"].Missing, 2)

	// Roster rows had no email, so the directory filled them in.
	require.Equal(t, "s1@school.edu", byID["s-1"].Email)
	require.Equal(t, "s2@school.edu", byID["s-2"].Email)
}

func TestStudentsOverviewPoolsGradesAcrossCourses(t *testing.T) {
	cache := newProgressTestCache(t)

	hundred := 100.0
	forty := 40.0

	gradedOne := submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn)
	gradedOne.AssignedGrade = &hundred
	gradedTwo := submissionIn("c-1", "a-2", "s-1", models.SubmissionStateTurnedIn)
	gradedTwo.AssignedGrade = &hundred
	gradedThree := submissionIn("c-2", "b-1", "s-1", models.SubmissionStateTurnedIn)
	gradedThree.AssignedGrade = &forty

	courseOne := CourseSnapshot{
		Course: models.Course{ExternalID: "c-1", Name: "Algebra", State: models.CourseStateActive},
		Assignments: []models.Assignment{
			publishedAssignment("a-1", "c-1"),
			publishedAssignment("a-2", "c-1"),
		},
		Roster:      rosterOf("c-1", "s-1"),
		Submissions: []models.Submission{gradedOne, gradedTwo},
	}
	courseTwo := CourseSnapshot{
		Course:      models.Course{ExternalID: "c-2", Name: "Biology", State: models.CourseStateActive},
		Assignments: []models.Assignment{publishedAssignment("b-1", "c-2")},
		Roster:      rosterOf("c-2", "s-1"),
		Submissions: []models.Submission{gradedThree},
	}

	stub := &stubSync{
		snapshots: map[string]CourseSnapshot{"c-1": courseOne, "c-2": courseTwo},
		courses:   []models.Course{courseOne.Course, courseTwo.Course},
	}

	svc := NewProgressService(stub, nil, nil, nil, cache, time.Minute, zerolog.Nop())

	overview, err := svc.StudentsOverview(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, overview.Students, 1)

	// All three grades pool into one mean, not an average of the two
	// per-course averages.
	require.NotNil(t, overview.Students[0].AverageGrade)
	require.InDelta(t, 80.0, *overview.Students[0].AverageGrade, 0.001)
}

func TestStudentCourseSummaryScopesToOwnSubmissions(t *testing.T) {
	cache := newProgressTestCache(t)
	principals := newPrincipalTestRepo(t, "progress_principals")

	principal := models.Principal{
		ID:         "88888888-8888-8888-8888-888888888888",
		ExternalID: "s-1",
		Email:      "s1@school.edu",
		Name:       "Ana",
		Role:       models.RoleStudent,
	}
	require.NoError(t, principals.Create(context.Background(), &principal))

	snapshot := snapshotWithOneDelivered()
	stub := &stubSync{
		snapshots: map[string]CourseSnapshot{"c-1": snapshot},
		submissions: []models.Submission{
			submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
		},
	}

	svc := NewProgressService(stub, nil, principals, nil, cache, time.Minute, zerolog.Nop())

	summary, err := svc.StudentCourseSummary(context.Background(), principal.ID, "c-1")
	require.NoError(t, err)
	require.Equal(t, "c-1", summary.CourseID)
	require.Equal(t, 2, summary.TotalAssignments)
	require.Equal(t, 1, summary.Submitted)
	require.Equal(t, 50, summary.CompletionPercent)
	require.Len(t, summary.Pending, 1)
	require.Equal(t, "a-2", summary.Pending[0].AssignmentID)
}
