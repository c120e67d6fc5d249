package dto

import "time"

// StudentProgress captures one student's completion aggregate within a
// course. Only assignments whose audience scope includes the student count
// toward the totals.
type StudentProgress struct {
	StudentID         string   `json:"student_id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	TotalAssignments  int      `json:"total_assignments"`
	Submitted         int      `json:"submitted"`
	Missing           int      `json:"missing"`
	CompletionPercent int      `json:"completion_percent"`
	AverageGrade      *float64 `json:"average_grade"`
}

// CourseProgressResponse lists per-student progress for one course.
type CourseProgressResponse struct {
	CourseID   string            `json:"course_id"`
	CourseName string            `json:"course_name"`
	Students   []StudentProgress `json:"students"`
	FetchedAt  time.Time         `json:"fetched_at"`
	CacheHit   bool              `json:"cache_hit,omitempty"`
}

// AssignmentProgress summarizes delivery of one assignment among its
// applicable students.
type AssignmentProgress struct {
	AssignmentID      string     `json:"assignment_id"`
	Title             string     `json:"title"`
	DueDate           *time.Time `json:"due_date"`
	MaxPoints         *float64   `json:"max_points"`
	ApplicableCount   int        `json:"applicable_count"`
	Submitted         int        `json:"submitted"`
	CompletionPercent int        `json:"completion_percent"`
}

// AssignmentProgressResponse lists per-assignment delivery for one course.
type AssignmentProgressResponse struct {
	CourseID    string               `json:"course_id"`
	CourseName  string               `json:"course_name"`
	Assignments []AssignmentProgress `json:"assignments"`
	FetchedAt   time.Time            `json:"fetched_at"`
	CacheHit    bool                 `json:"cache_hit,omitempty"`
}

// PendingAssignment is an undelivered assignment from the student's own view.
// Status is "missing" until the due date passes, then "overdue".
type PendingAssignment struct {
	AssignmentID string     `json:"assignment_id"`
	Title        string     `json:"title"`
	DueDate      *time.Time `json:"due_date"`
	Status       string     `json:"status"`
}

// Pending assignment statuses.
const (
	PendingStatusMissing = "missing"
	PendingStatusOverdue = "overdue"
)

// StudentCourseSummary is a student's own progress in one course.
type StudentCourseSummary struct {
	CourseID          string              `json:"course_id"`
	CourseName        string              `json:"course_name"`
	TotalAssignments  int                 `json:"total_assignments"`
	Submitted         int                 `json:"submitted"`
	CompletionPercent int                 `json:"completion_percent"`
	AverageGrade      *float64            `json:"average_grade"`
	Pending           []PendingAssignment `json:"pending"`
	FetchedAt         time.Time           `json:"fetched_at"`
	CacheHit          bool                `json:"cache_hit,omitempty"`
}

// Completion sources distinguish live upstream data from the local cache.
const (
	CompletionSourceLive  = "live"
	CompletionSourceCache = "cache"
)

// CourseCompletionResponse is the course-level completion rate. Source
// records whether it was computed from a live snapshot or from cached rows;
// the cache variant considers only students with at least one cached
// submission, so the two can legitimately differ.
type CourseCompletionResponse struct {
	CourseID           string    `json:"course_id"`
	CourseName         string    `json:"course_name"`
	ConsideredStudents int       `json:"considered_students"`
	CompletedStudents  int       `json:"completed_students"`
	CompletionRate     int       `json:"completion_rate"`
	Source             string    `json:"source"`
	ComputedAt         time.Time `json:"computed_at"`
	CacheHit           bool      `json:"cache_hit,omitempty"`
}

// CourseCompletionSummary is one course's row in the teacher overview.
type CourseCompletionSummary struct {
	CourseID           string `json:"course_id"`
	CourseName         string `json:"course_name"`
	Section            string `json:"section"`
	AssignmentCount    int    `json:"assignment_count"`
	ConsideredStudents int    `json:"considered_students"`
	CompletionRate     int    `json:"completion_rate"`
}

// TeacherOverviewResponse aggregates completion across all of one teacher's
// cached courses. OverallRate weighs every applicable (student, assignment)
// pair equally rather than averaging per-course rates.
type TeacherOverviewResponse struct {
	TeacherID   string                    `json:"teacher_id"`
	TeacherName string                    `json:"teacher_name"`
	Courses     []CourseCompletionSummary `json:"courses"`
	OverallRate int                       `json:"overall_rate"`
	ComputedAt  time.Time                 `json:"computed_at"`
}

// MissingAssignment pins an undelivered assignment to its course for the
// cross-course student overview.
type MissingAssignment struct {
	CourseID     string     `json:"course_id"`
	CourseName   string     `json:"course_name"`
	AssignmentID string     `json:"assignment_id"`
	Title        string     `json:"title"`
	DueDate      *time.Time `json:"due_date"`
}

// StudentOverview is one student's row across all of a teacher's courses.
type StudentOverview struct {
	StudentID         string              `json:"student_id"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	Courses           []string            `json:"courses"`
	TotalAssignments  int                 `json:"total_assignments"`
	Submitted         int                 `json:"submitted"`
	CompletionPercent int                 `json:"completion_percent"`
	AverageGrade      *float64            `json:"average_grade"`
	Missing           []MissingAssignment `json:"missing"`
}

// StudentsOverviewResponse lists cross-course student aggregates for a
// teacher.
type StudentsOverviewResponse struct {
	TeacherID string            `json:"teacher_id"`
	Students  []StudentOverview `json:"students"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// AtRiskStudent flags a student trending toward failure, with the reasons
// that triggered the flag.
type AtRiskStudent struct {
	StudentID         string   `json:"student_id"`
	Name              string   `json:"name"`
	CourseID          string   `json:"course_id"`
	CourseName        string   `json:"course_name"`
	CompletionPercent int      `json:"completion_percent"`
	AverageGrade      *float64 `json:"average_grade"`
	LateShare         int      `json:"late_share"`
	Reasons           []string `json:"reasons"`
}

// AtRiskResponse lists flagged students across a teacher's cached courses.
type AtRiskResponse struct {
	TeacherID  string          `json:"teacher_id"`
	Students   []AtRiskStudent `json:"students"`
	ComputedAt time.Time       `json:"computed_at"`
}
