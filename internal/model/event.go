package model

import "time"

// Severity classifies a security event
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AtLeast reports whether the severity is s or above, ordered
// low < medium < high < critical.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank(s) >= severityRank(min)
}

func severityRank(s Severity) int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// SecurityEvent is an immutable record of an authentication or threat
// outcome. IdentityID may be empty for unauthenticated actors.
type SecurityEvent struct {
	ID          string                 `json:"id"`
	IdentityID  string                 `json:"identityId,omitempty"`
	EventType   string                 `json:"eventType"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	IPAddress   string                 `json:"ipAddress"`
	UserAgent   string                 `json:"userAgent"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Security event type constants
const (
	EventFailedLogin           = "failed_login"
	EventSuccessfulLogin       = "successful_login"
	EventLockedAccountAccess   = "locked_account_access"
	EventInactiveAccountAccess = "inactive_account_access"
	EventAccountLocked         = "account_locked"
	EventAccountUnlocked       = "account_unlocked"
	EventTokenRevoked          = "token_revoked"
	EventBruteForceDetected    = "brute_force_detected"
	EventSuspiciousIP          = "suspicious_ip"
	EventUnusualAccessPattern  = "unusual_access_pattern"
	EventPermissionGranted     = "permission_granted"
	EventPermissionRevoked     = "permission_revoked"
	EventTwoFactorEnrolled     = "two_factor_enrolled"
	EventTwoFactorDisabled     = "two_factor_disabled"
)
