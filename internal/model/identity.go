package model

import (
	"time"
)

// Role represents the access role assigned to an identity
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleGuest   Role = "guest"
	RoleService Role = "service"
)

// ParseRole converts a string into a Role, reporting whether it is one of
// the known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleUser, RoleGuest, RoleService:
		return Role(s), true
	}
	return "", false
}

// Identity represents the core identity record owned by the credential vault
type Identity struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // never expose password hash
	Role             Role       `json:"role"`
	Active           bool       `json:"active"`
	Verified         bool       `json:"verified"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	FailedAttempts   int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	TwoFactorSecret  string     `json:"-"` // stored encrypted at rest
}

// IsLocked checks if the identity is currently locked out
func (i *Identity) IsLocked() bool {
	if i.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*i.LockedUntil)
}

// LockExpired reports whether a past lockout is still recorded on the
// identity. Callers clear the stale value on the next successful check.
func (i *Identity) LockExpired() bool {
	return i.LockedUntil != nil && !time.Now().Before(*i.LockedUntil)
}
