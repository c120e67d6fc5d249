package classroom

import "time"

// Date is the calendar date used by the upstream API for due dates. The zero
// value means no due date was set.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// IsZero reports whether the date carries no value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time converts the calendar date to an end-of-day UTC timestamp.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 23, 59, 59, 0, time.UTC)
}

// Course is an upstream course record.
type Course struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Section      string    `json:"section"`
	OwnerID      string    `json:"ownerId"`
	CourseState  string    `json:"courseState"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// IndividualStudentsOptions lists the students an individually scoped piece
// of coursework applies to.
type IndividualStudentsOptions struct {
	StudentIDs []string `json:"studentIds"`
}

// CourseWork is an upstream assignment record.
type CourseWork struct {
	ID                        string                     `json:"id"`
	CourseID                  string                     `json:"courseId"`
	Title                     string                     `json:"title"`
	State                     string                     `json:"state"`
	DueDate                   *Date                      `json:"dueDate"`
	MaxPoints                 *float64                   `json:"maxPoints"`
	AssigneeMode              string                     `json:"assigneeMode"`
	IndividualStudentsOptions *IndividualStudentsOptions `json:"individualStudentsOptions"`
	CreationTime              time.Time                  `json:"creationTime"`
}

// StudentSubmission is an upstream submission record.
type StudentSubmission struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"courseId"`
	CourseWorkID  string    `json:"courseWorkId"`
	UserID        string    `json:"userId"`
	State         string    `json:"state"`
	Late          bool      `json:"late"`
	DraftGrade    *float64  `json:"draftGrade"`
	AssignedGrade *float64  `json:"assignedGrade"`
	UpdateTime    time.Time `json:"updateTime"`
}

// Name carries the display name parts of an upstream profile.
type Name struct {
	FullName string `json:"fullName"`
}

// UserProfile is the public profile attached to roster and teacher records.
type UserProfile struct {
	ID           string `json:"id"`
	Name         Name   `json:"name"`
	EmailAddress string `json:"emailAddress"`
	PhotoURL     string `json:"photoUrl"`
}

// Student is an upstream roster record.
type Student struct {
	CourseID string      `json:"courseId"`
	UserID   string      `json:"userId"`
	Profile  UserProfile `json:"profile"`
}

// Teacher is an upstream co-teacher record.
type Teacher struct {
	CourseID string      `json:"courseId"`
	UserID   string      `json:"userId"`
	Profile  UserProfile `json:"profile"`
}

// Token is the response of a refresh-token grant.
type Token struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
