package models

import "time"

// Credential stores the OAuth token pair for a principal. At most one row
// exists per principal; refreshes overwrite it in place.
type Credential struct {
	PrincipalID  string    `gorm:"type:uuid;primaryKey" json:"principal_id"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NeedsRefresh reports whether the access token is expired or expires within
// the safety margin relative to the reference time.
func (c Credential) NeedsRefresh(reference time.Time, margin time.Duration) bool {
	return !c.ExpiresAt.After(reference.Add(margin))
}
