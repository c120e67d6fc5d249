package dto

import (
	"time"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// CourseResponse serializes a mirrored course.
type CourseResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Section      string     `json:"section,omitempty"`
	State        string     `json:"state"`
	CreationTime *time.Time `json:"creation_time,omitempty"`
	UpdateTime   *time.Time `json:"update_time,omitempty"`
	CachedAt     time.Time  `json:"cached_at"`
}

// AssignmentResponse serializes a mirrored assignment.
type AssignmentResponse struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	MaxPoints    *float64   `json:"max_points,omitempty"`
	AssigneeMode string     `json:"assignee_mode"`
	AudienceIDs  []string   `json:"audience_ids,omitempty"`
	CachedAt     time.Time  `json:"cached_at"`
}

// RosterEntryResponse serializes one enrollment.
type RosterEntryResponse struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// NewCourseResponse converts a course model into a DTO, keyed by the
// upstream id.
func NewCourseResponse(course models.Course) CourseResponse {
	return CourseResponse{
		ID:           course.ExternalID,
		Name:         course.Name,
		Section:      course.Section,
		State:        course.State,
		CreationTime: course.CreationTime,
		UpdateTime:   course.UpdateTime,
		CachedAt:     course.CachedAt,
	}
}

// NewCourseListResponse converts course models into DTOs.
func NewCourseListResponse(courses []models.Course) []CourseResponse {
	items := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, NewCourseResponse(course))
	}
	return items
}

// NewAssignmentResponse converts an assignment model into a DTO.
func NewAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           assignment.ExternalID,
		CourseID:     assignment.CourseID,
		Title:        assignment.Title,
		State:        assignment.State,
		DueDate:      assignment.DueDate,
		MaxPoints:    assignment.MaxPoints,
		AssigneeMode: assignment.AssigneeMode,
		AudienceIDs:  assignment.AudienceIDs,
		CachedAt:     assignment.CachedAt,
	}
}

// NewAssignmentListResponse converts assignment models into DTOs.
func NewAssignmentListResponse(assignments []models.Assignment) []AssignmentResponse {
	items := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, NewAssignmentResponse(assignment))
	}
	return items
}

// NewRosterResponse converts roster entries into DTOs.
func NewRosterResponse(entries []models.RosterEntry) []RosterEntryResponse {
	items := make([]RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, RosterEntryResponse{
			StudentID: entry.StudentExternalID,
			Name:      entry.Name,
			Email:     entry.Email,
		})
	}
	return items
}
