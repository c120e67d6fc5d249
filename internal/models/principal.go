package models

import "time"

// Principal represents a local user mirrored from the institution's identity
// provider. The ID is issued locally and never sent upstream; ExternalID is
// the upstream-issued identity.
type Principal struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID  string     `gorm:"size:255;uniqueIndex;not null" json:"external_id"`
	Email       string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Picture     string     `gorm:"size:512" json:"picture"`
	Role        string     `gorm:"size:50;not null;default:student" json:"role"`
	Domain      string     `gorm:"size:255" json:"domain"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const (
	// RoleStudent is the default role assigned on first login.
	RoleStudent = "student"
	// RoleTeacher marks principals that own courses.
	RoleTeacher = "teacher"
	// RoleCoordinator marks principals with institution-wide visibility.
	RoleCoordinator = "coordinator"
)

// IsTeacher reports whether the principal can own courses.
func (p Principal) IsTeacher() bool {
	return p.Role == RoleTeacher
}
