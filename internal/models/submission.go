package models

import "time"

// Submission mirrors an upstream student submission. PrincipalID is null when
// the student has not logged in locally yet; the reference is resolved again
// on the next fetch, never backfilled retroactively.
type Submission struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ExternalID        string     `gorm:"size:255;not null;uniqueIndex:ux_submission_key" json:"external_id"`
	AssignmentID      string     `gorm:"size:255;not null;uniqueIndex:ux_submission_key;index" json:"assignment_id"`
	CourseID          string     `gorm:"size:255;not null;uniqueIndex:ux_submission_key;index" json:"course_id"`
	PrincipalID       *string    `gorm:"type:uuid;index" json:"principal_id"`
	StudentExternalID string     `gorm:"size:255;index" json:"student_external_id"`
	State             string     `gorm:"size:50" json:"state"`
	Late              bool       `json:"late"`
	DraftGrade        *float64   `json:"draft_grade"`
	AssignedGrade     *float64   `json:"assigned_grade"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	CachedAt          time.Time  `json:"cached_at"`
}

const (
	// SubmissionStateNew means the student has not opened the assignment.
	SubmissionStateNew = "NEW"
	// SubmissionStateCreated means a draft exists but was not turned in.
	SubmissionStateCreated = "CREATED"
	// SubmissionStateTurnedIn means the student delivered the work.
	SubmissionStateTurnedIn = "TURNED_IN"
	// SubmissionStateReturned means staff returned the delivered work.
	SubmissionStateReturned = "RETURNED"
	// SubmissionStateReclaimed means the student took back a delivered submission.
	SubmissionStateReclaimed = "RECLAIMED_BY_STUDENT"
)

// Delivered reports whether the submission counts as turned in. Returned work
// still counts: the student did deliver it.
func (s Submission) Delivered() bool {
	return s.State == SubmissionStateTurnedIn || s.State == SubmissionStateReturned
}

// EffectiveGrade returns the assigned grade when present, otherwise the draft
// grade, otherwise nil. Ungraded submissions stay out of averages.
func (s Submission) EffectiveGrade() *float64 {
	if s.AssignedGrade != nil {
		return s.AssignedGrade
	}
	return s.DraftGrade
}
