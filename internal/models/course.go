package models

import "time"

// Course mirrors an upstream course. Rows are upserted on every fetch and
// never deleted by the sync path.
type Course struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExternalID   string     `gorm:"size:255;uniqueIndex;not null" json:"external_id"`
	Name         string     `gorm:"size:500;not null" json:"name"`
	Section      string     `gorm:"size:255" json:"section"`
	TeacherID    *string    `gorm:"type:uuid;index" json:"teacher_id"`
	State        string     `gorm:"size:50" json:"state"`
	CreationTime *time.Time `json:"creation_time"`
	UpdateTime   *time.Time `json:"update_time"`
	CachedAt     time.Time  `json:"cached_at"`
}

const (
	// CourseStateActive marks courses currently in session.
	CourseStateActive = "ACTIVE"
	// CourseStateArchived marks courses no longer in session.
	CourseStateArchived = "ARCHIVED"
)
