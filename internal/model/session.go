package model

import (
	"time"
)

// Session binds a live access token to the identity and client that
// obtained it. A structurally valid token with no session is rejected:
// sessions, not tokens, are the source of truth for "still live".
type Session struct {
	IdentityID     string    `json:"identityId"`
	AccessTokenID  string    `json:"accessTokenId"`
	RefreshTokenID string    `json:"refreshTokenId"`
	IPAddress      string    `json:"ipAddress"`
	UserAgent      string    `json:"userAgent"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// IsExpired checks if the session has outlived the refresh token lifetime
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
