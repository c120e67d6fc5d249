package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
)

func publishedAssignment(id, courseID string) models.Assignment {
	return models.Assignment{
		ExternalID:   id,
		CourseID:     courseID,
		Title:        "Assignment " + id,
		State:        models.AssignmentStatePublished,
		AssigneeMode: models.AssigneeModeAll,
	}
}

func individualAssignment(id, courseID string, audience ...string) models.Assignment {
	assignment := publishedAssignment(id, courseID)
	assignment.AssigneeMode = models.AssigneeModeIndividual
	assignment.AudienceIDs = datatypes.JSONSlice[string](audience)
	return assignment
}

func rosterOf(courseID string, students ...string) []models.RosterEntry {
	entries := make([]models.RosterEntry, 0, len(students))
	for _, student := range students {
		entries = append(entries, models.RosterEntry{
			CourseID:          courseID,
			StudentExternalID: student,
			Name:              "Student " + student,
		})
	}
	return entries
}

func submissionIn(courseID, assignmentID, studentID, state string) models.Submission {
	return models.Submission{
		ExternalID:        "sub-" + assignmentID + "-" + studentID,
		AssignmentID:      assignmentID,
		CourseID:          courseID,
		StudentExternalID: studentID,
		State:             state,
	}
}

func TestRoundPercent(t *testing.T) {
	require.Equal(t, 0, roundPercent(0, 0))
	require.Equal(t, 0, roundPercent(5, 0))
	require.Equal(t, 50, roundPercent(1, 2))
	require.Equal(t, 67, roundPercent(2, 3))
	require.Equal(t, 33, roundPercent(1, 3))
	require.Equal(t, 100, roundPercent(3, 3))
}

func TestStudentProgressThreeStudentsTwoAssignments(t *testing.T) {
	course := models.Course{ExternalID: "c-1", Name: "Algebra"}
	assignments := []models.Assignment{
		publishedAssignment("a-1", "c-1"),
		individualAssignment("a-2", "c-1", "s-1", "s-2"),
	}
	roster := rosterOf("c-1", "s-1", "s-2", "s-3")
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
		submissionIn("c-1", "a-2", "s-1", models.SubmissionStateReturned),
		submissionIn("c-1", "a-1", "s-2", models.SubmissionStateTurnedIn),
		submissionIn("c-1", "a-2", "s-2", models.SubmissionStateCreated),
		submissionIn("c-1", "a-1", "s-3", models.SubmissionStateTurnedIn),
	}

	data := newCourseData(course, assignments, roster, submissions)
	students := buildStudentProgress(data)
	require.Len(t, students, 3)

	byID := map[string]dto.StudentProgress{}
	for _, student := range students {
		byID[student.StudentID] = student
	}

	require.Equal(t, 2, byID["s-1"].TotalAssignments)
	require.Equal(t, 100, byID["s-1"].CompletionPercent)
	require.Equal(t, 50, byID["s-2"].CompletionPercent)
	require.Equal(t, 1, byID["s-2"].Missing)

	// a-2 is scoped to s-1 and s-2, so s-3 completes on a-1 alone.
	require.Equal(t, 1, byID["s-3"].TotalAssignments)
	require.Equal(t, 100, byID["s-3"].CompletionPercent)

	considered, completed := courseCompletion(data)
	require.Equal(t, 3, considered)
	require.Equal(t, 2, completed)
	require.Equal(t, 67, roundPercent(completed, considered))
}

func TestIndividualAudienceIntersectsEnrollment(t *testing.T) {
	course := models.Course{ExternalID: "c-1", Name: "Algebra"}
	// Audience names s-1 and a student who already left the course.
	assignments := []models.Assignment{
		individualAssignment("a-1", "c-1", "s-1", "s-gone"),
	}
	roster := rosterOf("c-1", "s-1", "s-2")
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
	}

	data := newCourseData(course, assignments, roster, submissions)
	students := buildStudentProgress(data)
	require.Len(t, students, 2)

	byID := map[string]dto.StudentProgress{}
	for _, student := range students {
		byID[student.StudentID] = student
	}

	require.Equal(t, 1, byID["s-1"].TotalAssignments)
	require.Equal(t, 100, byID["s-1"].CompletionPercent)

	// Not targeted, so nothing counts against s-2.
	require.Equal(t, 0, byID["s-2"].TotalAssignments)
	require.Equal(t, 0, byID["s-2"].CompletionPercent)

	// Only s-1 has an applicable assignment; the departed student never
	// appears because applicability iterates the roster.
	considered, completed := courseCompletion(data)
	require.Equal(t, 1, considered)
	require.Equal(t, 1, completed)

	progress := buildAssignmentProgress(data)
	require.Len(t, progress, 1)
	require.Equal(t, 1, progress[0].ApplicableCount)
	require.Equal(t, 100, progress[0].CompletionPercent)
}

func TestReclaimedAndDraftSubmissionsDoNotCount(t *testing.T) {
	course := models.Course{ExternalID: "c-1"}
	assignments := []models.Assignment{publishedAssignment("a-1", "c-1")}
	roster := rosterOf("c-1", "s-1", "s-2")
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-1", models.SubmissionStateReclaimed),
		submissionIn("c-1", "a-1", "s-2", models.SubmissionStateCreated),
	}

	data := newCourseData(course, assignments, roster, submissions)
	considered, completed := courseCompletion(data)
	require.Equal(t, 2, considered)
	require.Equal(t, 0, completed)
}

func TestDraftAssignmentsAreExcluded(t *testing.T) {
	course := models.Course{ExternalID: "c-1"}
	draft := publishedAssignment("a-2", "c-1")
	draft.State = "DRAFT"
	assignments := []models.Assignment{publishedAssignment("a-1", "c-1"), draft}
	roster := rosterOf("c-1", "s-1")
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
	}

	data := newCourseData(course, assignments, roster, submissions)
	students := buildStudentProgress(data)
	require.Len(t, students, 1)
	require.Equal(t, 1, students[0].TotalAssignments)
	require.Equal(t, 100, students[0].CompletionPercent)
}

func TestCacheModeConsidersOnlyStudentsWithRows(t *testing.T) {
	course := models.Course{ExternalID: "c-1"}
	assignments := []models.Assignment{publishedAssignment("a-1", "c-1")}
	roster := rosterOf("c-1", "s-1", "s-2")
	// Only s-1's submission was ever cached.
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn),
	}

	data := newCourseData(course, assignments, roster, submissions)

	liveConsidered, liveCompleted := courseCompletion(data)
	require.Equal(t, 2, liveConsidered)
	require.Equal(t, 1, liveCompleted)

	cacheConsidered, cacheCompleted := courseCompletionFromCache(data)
	require.Equal(t, 1, cacheConsidered)
	require.Equal(t, 1, cacheCompleted)

	// The two estimates legitimately diverge: 50% live, 100% from cache.
	require.Equal(t, 50, roundPercent(liveCompleted, liveConsidered))
	require.Equal(t, 100, roundPercent(cacheCompleted, cacheConsidered))
}

func TestCacheModeIgnoresRosterAndAudience(t *testing.T) {
	course := models.Course{ExternalID: "c-1"}
	assignments := []models.Assignment{
		publishedAssignment("a-1", "c-1"),
		individualAssignment("a-2", "c-1", "s-1"),
	}
	roster := rosterOf("c-1", "s-1", "s-2")
	// s-left has cached rows but dropped off the roster; s-2 delivered a-1
	// but is not in a-2's audience.
	submissions := []models.Submission{
		submissionIn("c-1", "a-1", "s-left", models.SubmissionStateTurnedIn),
		submissionIn("c-1", "a-1", "s-2", models.SubmissionStateTurnedIn),
	}

	data := newCourseData(course, assignments, roster, submissions)
	considered, completed := courseCompletionFromCache(data)

	// Both students with cached rows count, and completion requires every
	// cached published assignment regardless of audience scope.
	require.Equal(t, 2, considered)
	require.Equal(t, 0, completed)

	liveConsidered, liveCompleted := courseCompletion(data)
	require.Equal(t, 2, liveConsidered)
	require.Equal(t, 1, liveCompleted)
}

func TestStudentSummaryPendingStatuses(t *testing.T) {
	reference := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pastDue := reference.Add(-48 * time.Hour)
	futureDue := reference.Add(48 * time.Hour)

	course := models.Course{ExternalID: "c-1", Name: "Algebra"}
	overdue := publishedAssignment("a-1", "c-1")
	overdue.DueDate = &pastDue
	upcoming := publishedAssignment("a-2", "c-1")
	upcoming.DueDate = &futureDue
	undated := publishedAssignment("a-3", "c-1")
	done := publishedAssignment("a-4", "c-1")

	assignments := []models.Assignment{overdue, upcoming, undated, done}
	roster := rosterOf("c-1", "s-1")

	assigned := 80.0
	draftOnly := 60.0
	delivered := submissionIn("c-1", "a-4", "s-1", models.SubmissionStateReturned)
	delivered.AssignedGrade = &assigned
	delivered.DraftGrade = &draftOnly

	data := newCourseData(course, assignments, roster, []models.Submission{delivered})

	summary := buildStudentSummary(data, "s-1", reference)
	require.Equal(t, 4, summary.TotalAssignments)
	require.Equal(t, 1, summary.Submitted)
	require.Equal(t, 25, summary.CompletionPercent)
	require.Len(t, summary.Pending, 3)

	byID := map[string]dto.PendingAssignment{}
	for _, pending := range summary.Pending {
		byID[pending.AssignmentID] = pending
	}
	require.Equal(t, dto.PendingStatusOverdue, byID["a-1"].Status)
	require.Equal(t, dto.PendingStatusMissing, byID["a-2"].Status)
	require.Equal(t, dto.PendingStatusMissing, byID["a-3"].Status)

	// The assigned grade wins over the draft grade.
	require.NotNil(t, summary.AverageGrade)
	require.InDelta(t, 80.0, *summary.AverageGrade, 0.001)
}

func TestAverageGradeFallsBackToDraft(t *testing.T) {
	draft := 55.0
	withDraft := models.Submission{State: models.SubmissionStateTurnedIn, DraftGrade: &draft}
	ungraded := models.Submission{State: models.SubmissionStateTurnedIn}

	average := averageGrade([]models.Submission{withDraft, ungraded})
	require.NotNil(t, average)
	require.InDelta(t, 55.0, *average, 0.001)

	require.Nil(t, averageGrade([]models.Submission{ungraded}))
	require.Nil(t, averageGrade(nil))
}

func TestLateShare(t *testing.T) {
	course := models.Course{ExternalID: "c-1"}
	assignments := []models.Assignment{
		publishedAssignment("a-1", "c-1"),
		publishedAssignment("a-2", "c-1"),
		publishedAssignment("a-3", "c-1"),
	}
	roster := rosterOf("c-1", "s-1")

	late := submissionIn("c-1", "a-1", "s-1", models.SubmissionStateTurnedIn)
	late.Late = true
	onTime := submissionIn("c-1", "a-2", "s-1", models.SubmissionStateReturned)
	notDelivered := submissionIn("c-1", "a-3", "s-1", models.SubmissionStateCreated)
	notDelivered.Late = true

	data := newCourseData(course, assignments, roster, []models.Submission{late, onTime, notDelivered})

	// Only delivered work counts toward the late share.
	require.Equal(t, 50, lateShare(data, "s-1", data.applicable("s-1")))
}
