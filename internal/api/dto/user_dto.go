package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRegisterRequest payload.
type UserRegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
}

// UserLoginRequest payload.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityResponse is the caller as returned by login and session lookups.
type IdentityResponse struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	FullName   string          `json:"full_name"`
	Department string          `json:"department"`
	Role       domain.UserRole `json:"role"`
}

// AuthEnvelope is the data of a login or registration response.
type AuthEnvelope struct {
	User IdentityResponse `json:"user"`
	Auth AuthResponse     `json:"auth"`
}

// NewIdentityResponse maps a user.
func NewIdentityResponse(u *domain.User) IdentityResponse {
	return IdentityResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Department: u.Department,
		Role:       u.Role,
	}
}

// Identity converts the response back into a domain identity.
func (r IdentityResponse) Identity() domain.Identity {
	return domain.Identity{
		ID:         r.ID,
		Email:      r.Email,
		FullName:   r.FullName,
		Department: r.Department,
		Source:     domain.IdentitySourceRemote,
	}
}
