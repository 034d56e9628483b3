package domain

import "time"

// UserRole separates requesters from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is an account held by the remote store.
type User struct {
	ID           string
	Email        string
	FullName     string
	Department   string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the user into the identity shape used by chat and ticket flows.
func (u *User) Identity() Identity {
	return Identity{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Department: u.Department,
		Source:     IdentitySourceRemote,
	}
}
