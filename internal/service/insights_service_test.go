package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/repository"
)

type insightsFixture struct {
	svc        InsightsService
	db         *gorm.DB
	teacherID  string
	courseRepo repository.CourseRepository
}

func newInsightsFixture(t *testing.T, name string) insightsFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Principal{},
		&models.Course{},
		&models.Assignment{},
		&models.Submission{},
		&models.RosterEntry{},
	))

	principals := repository.NewPrincipalRepository(db)
	courses := repository.NewCourseRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	roster := repository.NewRosterRepository(db)

	teacher := models.Principal{
		ID:         "99999999-9999-9999-9999-999999999999",
		ExternalID: "t-1",
		Email:      "teacher@school.edu",
		Name:       "Prof Ada",
		Role:       models.RoleTeacher,
	}
	require.NoError(t, principals.Create(context.Background(), &teacher))

	return insightsFixture{
		svc:        NewInsightsService(courses, assignments, submissions, roster, principals, zerolog.Nop()),
		db:         db,
		teacherID:  teacher.ID,
		courseRepo: courses,
	}
}

func (f insightsFixture) seedCourse(t *testing.T, courseID string, assignments []models.Assignment, roster []models.RosterEntry, submissions []models.Submission) {
	t.Helper()
	ctx := context.Background()

	course := models.Course{
		ExternalID: courseID,
		Name:       "Course " + courseID,
		TeacherID:  &f.teacherID,
		State:      models.CourseStateActive,
		CachedAt:   time.Now(),
	}
	require.NoError(t, f.courseRepo.Upsert(ctx, &course))

	assignmentRepo := repository.NewAssignmentRepository(f.db)
	for i := range assignments {
		require.NoError(t, assignmentRepo.Upsert(ctx, &assignments[i]))
	}
	rosterRepo := repository.NewRosterRepository(f.db)
	for i := range roster {
		require.NoError(t, rosterRepo.Upsert(ctx, &roster[i]))
	}
	submissionRepo := repository.NewSubmissionRepository(f.db)
	for i := range submissions {
		require.NoError(t, submissionRepo.Upsert(ctx, &submissions[i]))
	}
}

func TestCourseCompletionFromCacheUnknownCourse(t *testing.T) {
	fixture := newInsightsFixture(t, "insights_unknown")

	_, err := fixture.svc.CourseCompletionFromCache(context.Background(), "c-missing")
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseCompletionFromCacheSkipsUnfetchedStudents(t *testing.T) {
	fixture := newInsightsFixture(t, "insights_cache_mode")

	fixture.seedCourse(t, "c-1",
		[]models.Assignment{publishedAssignment("a-1", "c-1")},
		rosterOf("c-1", "s-1", "s-2"),
		[]models.Submission{
			submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
		},
	)

	response, err := fixture.svc.CourseCompletionFromCache(context.Background(), "c-1")
	require.NoError(t, err)
	require.Equal(t, dto.CompletionSourceCache, response.Source)
	require.Equal(t, 1, response.ConsideredStudents)
	require.Equal(t, 1, response.CompletedStudents)
	require.Equal(t, 100, response.CompletionRate)
}

func TestTeacherOverviewWeighsPairsNotCourses(t *testing.T) {
	fixture := newInsightsFixture(t, "insights_overview")

	// Big course: 2 students, 2 assignments, 3 of 4 pairs delivered.
	fixture.seedCourse(t, "c-1",
		[]models.Assignment{publishedAssignment("a-1", "c-1"), publishedAssignment("a-2", "c-1")},
		rosterOf("c-1", "s-1", "s-2"),
		[]models.Submission{
			submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
			submissionIn("c-1", "a-2", "s-1", models.SubmissionStateTurnedIn),
			submissionIn("c-1", "a-1", "s-2", models.SubmissionStateReturned),
		},
	)
	// Small course: 1 student, 1 assignment, nothing delivered.
	fixture.seedCourse(t, "c-2",
		[]models.Assignment{publishedAssignment("b-1", "c-2")},
		rosterOf("c-2", "s-3"),
		nil,
	)
	// Empty course contributes nothing.
	fixture.seedCourse(t, "c-3", nil, nil, nil)

	overview, err := fixture.svc.TeacherOverview(context.Background(), fixture.teacherID)
	require.NoError(t, err)
	require.Equal(t, "Prof Ada", overview.TeacherName)
	require.Len(t, overview.Courses, 3)

	byID := map[string]dto.CourseCompletionSummary{}
	for _, course := range overview.Courses {
		byID[course.CourseID] = course
	}
	require.Equal(t, 2, byID["c-1"].ConsideredStudents)
	require.Equal(t, 50, byID["c-1"].CompletionRate)
	require.Equal(t, 0, byID["c-2"].CompletionRate)
	require.Equal(t, 0, byID["c-3"].ConsideredStudents)

	// 3 delivered of 5 pairs across both non-empty courses.
	require.Equal(t, 60, overview.OverallRate)
}

func TestTeacherOverviewUnknownTeacher(t *testing.T) {
	fixture := newInsightsFixture(t, "insights_no_teacher")

	_, err := fixture.svc.TeacherOverview(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrTeacherNotFound)
}

func TestAtRiskStudentsFlagsGradeAndLateness(t *testing.T) {
	fixture := newInsightsFixture(t, "insights_at_risk")

	lowGrade := 55.0
	goodGrade := 95.0

	failing := submissionIn("c-1", "a-1", "s-1", models.SubmissionStateReturned)
	failing.AssignedGrade = &lowGrade

	lateOne := submissionIn("c-1", "a-1", "s-2", models.SubmissionStateTurnedIn)
	lateOne.Late = true
	lateOne.AssignedGrade = &goodGrade
	lateTwo := submissionIn("c-1", "a-2", "s-2", models.SubmissionStateTurnedIn)
	lateTwo.Late = true
	lateTwo.AssignedGrade = &goodGrade

	fine := submissionIn("c-1", "a-1", "s-3", models.SubmissionStateReturned)
	fine.AssignedGrade = &goodGrade

	fixture.seedCourse(t, "c-1",
		[]models.Assignment{publishedAssignment("a-1", "c-1"), publishedAssignment("a-2", "c-1")},
		rosterOf("c-1", "s-1", "s-2", "s-3"),
		[]models.Submission{failing, lateOne, lateTwo, fine},
	)

	response, err := fixture.svc.AtRiskStudents(context.Background(), fixture.teacherID)
	require.NoError(t, err)
	require.Len(t, response.Students, 2)

	byID := map[string]dto.AtRiskStudent{}
	for _, student := range response.Students {
		byID[student.StudentID] = student
	}

	require.Contains(t, byID, "s-1")
	require.Contains(t, byID["s-1"].Reasons, "low average grade")

	require.Contains(t, byID, "s-2")
	require.Contains(t, byID["s-2"].Reasons, "frequent late delivery")
	require.Equal(t, 100, byID["s-2"].LateShare)

	require.NotContains(t, byID, "s-3")
}
