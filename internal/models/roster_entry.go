package models

import "time"

// RosterEntry mirrors a course enrollment. Name and email are denormalized so
// enrollment counts work before the student's first local login.
type RosterEntry struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CourseID          string    `gorm:"size:255;not null;uniqueIndex:ux_roster_key" json:"course_id"`
	StudentExternalID string    `gorm:"size:255;not null;uniqueIndex:ux_roster_key" json:"student_external_id"`
	PrincipalID       *string   `gorm:"type:uuid;index" json:"principal_id"`
	Name              string    `gorm:"size:255" json:"name"`
	Email             string    `gorm:"size:255" json:"email"`
	CachedAt          time.Time `json:"cached_at"`
}
