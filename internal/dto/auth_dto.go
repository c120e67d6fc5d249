package dto

import (
	"time"

	"github.com/noah-isme/classmirror-api/internal/models"
)

// LoginRequest carries the identity and token pair obtained from the OAuth
// callback. The refresh token may be absent on repeat consents; the stored
// one is kept in that case.
type LoginRequest struct {
	ExternalID   string `json:"external_id" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	Picture      string `json:"picture" validate:"omitempty,url"`
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in" validate:"required,gt=0"`
}

// PrincipalResponse serializes a principal for API responses. Tokens are
// never included.
type PrincipalResponse struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Picture     string     `json:"picture,omitempty"`
	Role        string     `json:"role"`
	Domain      string     `json:"domain,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse returns the provisioned principal and a session token.
type LoginResponse struct {
	Principal PrincipalResponse `json:"principal"`
	Token     string            `json:"token"`
}

// NewPrincipalResponse converts a principal model into a DTO.
func NewPrincipalResponse(principal models.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:          principal.ID,
		ExternalID:  principal.ExternalID,
		Email:       principal.Email,
		Name:        principal.Name,
		Picture:     principal.Picture,
		Role:        principal.Role,
		Domain:      principal.Domain,
		LastLoginAt: principal.LastLoginAt,
	}
}
