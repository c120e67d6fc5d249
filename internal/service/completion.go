package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/classmirror-api/internal/dto"
	"github.com/noah-isme/classmirror-api/internal/models"
)

// courseData indexes one course's cached or freshly fetched rows for the
// completion builders. Only published assignments participate in analytics.
type courseData struct {
	course      models.Course
	assignments []models.Assignment
	roster      []models.RosterEntry
	// submissions is keyed assignment external id, then student external id.
	// The unique submission key guarantees at most one row per pair.
	submissions map[string]map[string]models.Submission
}

func newCourseData(course models.Course, assignments []models.Assignment, roster []models.RosterEntry, submissions []models.Submission) courseData {
	data := courseData{
		course:      course,
		roster:      roster,
		submissions: make(map[string]map[string]models.Submission),
	}

	for _, assignment := range assignments {
		if assignment.State != models.AssignmentStatePublished {
			continue
		}
		data.assignments = append(data.assignments, assignment)
	}

	for _, submission := range submissions {
		byStudent, ok := data.submissions[submission.AssignmentID]
		if !ok {
			byStudent = make(map[string]models.Submission)
			data.submissions[submission.AssignmentID] = byStudent
		}
		byStudent[submission.StudentExternalID] = submission
	}

	return data
}

// applicable lists the published assignments whose audience scope includes
// the student. The caller guarantees the student is currently enrolled;
// audience lists referencing unenrolled students are handled by iterating the
// roster, never the audience list.
func (d courseData) applicable(studentExternalID string) []models.Assignment {
	var applicable []models.Assignment
	for _, assignment := range d.assignments {
		if assignment.TargetsStudent(studentExternalID) {
			applicable = append(applicable, assignment)
		}
	}
	return applicable
}

func (d courseData) submission(assignmentExternalID, studentExternalID string) (models.Submission, bool) {
	byStudent, ok := d.submissions[assignmentExternalID]
	if !ok {
		return models.Submission{}, false
	}
	submission, ok := byStudent[studentExternalID]
	return submission, ok
}

func (d courseData) delivered(assignmentExternalID, studentExternalID string) bool {
	submission, ok := d.submission(assignmentExternalID, studentExternalID)
	return ok && submission.Delivered()
}

// roundPercent computes round(part/total*100), returning 0 when total is 0
// rather than an error or NaN.
func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// averageGrade averages the effective grades of the given submissions,
// skipping ungraded ones. Returns nil when nothing is graded.
func averageGrade(submissions []models.Submission) *float64 {
	var sum float64
	var count int
	for _, submission := range submissions {
		if grade := submission.EffectiveGrade(); grade != nil {
			sum += *grade
			count++
		}
	}
	if count == 0 {
		return nil
	}

	average := math.Round(sum/float64(count)*100) / 100
	return &average
}

// buildStudentProgress computes the per-student completion aggregate for
// every enrolled student, ordered by name for stable output.
func buildStudentProgress(data courseData) []dto.StudentProgress {
	students := make([]dto.StudentProgress, 0, len(data.roster))
	for _, entry := range data.roster {
		applicable := data.applicable(entry.StudentExternalID)

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

		students = append(students, dto.StudentProgress{
			StudentID:         entry.StudentExternalID,
			Name:              entry.Name,
			Email:             entry.Email,
			TotalAssignments:  len(applicable),
			Submitted:         delivered,
			Missing:           len(applicable) - delivered,
			CompletionPercent: roundPercent(delivered, len(applicable)),
			AverageGrade:      averageGrade(graded),
		})
	}

	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].StudentID < students[j].StudentID
	})

	return students
}

// buildAssignmentProgress computes per-assignment delivery among each
// assignment's applicable students, in assignment order.
func buildAssignmentProgress(data courseData) []dto.AssignmentProgress {
	assignments := make([]dto.AssignmentProgress, 0, len(data.assignments))
	for _, assignment := range data.assignments {
		var applicable, delivered int
		for _, entry := range data.roster {
			if !assignment.TargetsStudent(entry.StudentExternalID) {
				continue
			}
			applicable++
			if data.delivered(assignment.ExternalID, entry.StudentExternalID) {
				delivered++
			}
		}

		assignments = append(assignments, dto.AssignmentProgress{
			AssignmentID:      assignment.ExternalID,
			Title:             assignment.Title,
			DueDate:           assignment.DueDate,
			MaxPoints:         assignment.MaxPoints,
			ApplicableCount:   applicable,
			Submitted:         delivered,
			CompletionPercent: roundPercent(delivered, applicable),
		})
	}

	return assignments
}

// courseCompletion computes the course completion rate from live data.
// Considered students are those with at least one applicable assignment;
// completed students delivered every applicable one.
func courseCompletion(data courseData) (considered, completed int) {
	for _, entry := range data.roster {
		applicable := data.applicable(entry.StudentExternalID)
		if len(applicable) == 0 {
			continue
		}
		considered++

		done := true
		for _, assignment := range applicable {
			if !data.delivered(assignment.ExternalID, entry.StudentExternalID) {
				done = false
				break
			}
		}
		if done {
			completed++
		}
	}

	return considered, completed
}

// courseCompletionFromCache is the cache-only variant: considered students
// are the distinct students with at least one cached submission row, whether
// or not they still appear on the roster, and completion requires a delivered
// submission for every cached published assignment regardless of audience
// scope. A looser estimate than the live computation; callers label the
// source accordingly.
func courseCompletionFromCache(data courseData) (considered, completed int) {
	seen := make(map[string]bool)
	for _, byStudent := range data.submissions {
		for studentID := range byStudent {
			seen[studentID] = true
		}
	}

	considered = len(seen)
	for studentID := range seen {
		done := true
		for _, assignment := range data.assignments {
			if !data.delivered(assignment.ExternalID, studentID) {
				done = false
				break
			}
		}
		if done {
			completed++
		}
	}

	return considered, completed
}

// buildStudentSummary computes one student's own view of a course: totals,
// average grade and the pending list with missing/overdue status relative to
// the reference time.
func buildStudentSummary(data courseData, studentExternalID string, reference time.Time) dto.StudentCourseSummary {
	applicable := data.applicable(studentExternalID)

	var delivered int
	var graded []models.Submission
	var pending []dto.PendingAssignment
	for _, assignment := range applicable {
		submission, ok := data.submission(assignment.ExternalID, studentExternalID)
		if ok {
			graded = append(graded, submission)
		}
		if ok && submission.Delivered() {
			delivered++
			continue
		}

		status := dto.PendingStatusMissing
		if assignment.DueDate != nil && assignment.DueDate.Before(reference) {
			status = dto.PendingStatusOverdue
		}
		pending = append(pending, dto.PendingAssignment{
			AssignmentID: assignment.ExternalID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			Status:       status,
		})
	}

	return dto.StudentCourseSummary{
		CourseID:          data.course.ExternalID,
		CourseName:        data.course.Name,
		TotalAssignments:  len(applicable),
		Submitted:         delivered,
		CompletionPercent: roundPercent(delivered, len(applicable)),
		AverageGrade:      averageGrade(graded),
		Pending:           pending,
	}
}

// lateShare computes the rounded percentage of the student's delivered
// submissions that were late, over the given applicable assignments.
func lateShare(data courseData, studentExternalID string, applicable []models.Assignment) int {
	var delivered, late int
	for _, assignment := range applicable {
		submission, ok := data.submission(assignment.ExternalID, studentExternalID)
		if !ok || !submission.Delivered() {
			continue
		}
		delivered++
		if submission.Late {
			late++
		}
	}

	return roundPercent(late, delivered)
}
