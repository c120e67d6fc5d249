package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment mirrors upstream coursework. The audience scope determines which
// students the assignment applies to: every enrolled student, or only the
// explicitly listed ones.
type Assignment struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	ExternalID   string                      `gorm:"size:255;not null;uniqueIndex:ux_assignment_course" json:"external_id"`
	CourseID     string                      `gorm:"size:255;not null;uniqueIndex:ux_assignment_course;index" json:"course_id"`
	Title        string                      `gorm:"size:500;not null" json:"title"`
	State        string                      `gorm:"size:50" json:"state"`
	DueDate      *time.Time                  `json:"due_date"`
	MaxPoints    *float64                    `json:"max_points"`
	AssigneeMode string                      `gorm:"size:50" json:"assignee_mode"`
	AudienceIDs  datatypes.JSONSlice[string] `json:"audience_ids"`
	CreationTime *time.Time                  `json:"creation_time"`
	CachedAt     time.Time                   `json:"cached_at"`
}

const (
	// AssignmentStatePublished marks coursework visible to students.
	AssignmentStatePublished = "PUBLISHED"

	// AssigneeModeAll scopes an assignment to every enrolled student.
	AssigneeModeAll = "ALL_STUDENTS"
	// AssigneeModeIndividual scopes an assignment to an explicit student set.
	AssigneeModeIndividual = "INDIVIDUAL_STUDENTS"
)

// TargetsStudent reports whether the assignment's audience scope names the
// given student. Enrollment is checked separately by the analytics engine;
// audience lists can reference students no longer enrolled.
func (a Assignment) TargetsStudent(studentExternalID string) bool {
	if a.AssigneeMode != AssigneeModeIndividual {
		return true
	}

	for _, id := range a.AudienceIDs {
		if id == studentExternalID {
			return true
		}
	}

	return false
}
