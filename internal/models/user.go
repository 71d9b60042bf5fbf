package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the roles the credential store accepts.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         UserRole
	// RefreshToken holds the single live refresh token, nil when logged out.
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns a copy stripped of credential material, safe to attach to a
// request or serialise.
func (u User) Public() User {
	u.PasswordHash = nil
	u.RefreshToken = nil
	return u
}
