package service

import "errors"

// Security-core error taxonomy. Callers branch with errors.Is; no error
// path carries password hashes, signing keys, or other secret material.
var (
	// ErrInvalidFormat means a malformed username or email at registration
	ErrInvalidFormat = errors.New("invalid username or email format")
	// ErrDuplicateIdentity means the username or email is already taken
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrWeakPassword means the password fails the configured policy
	ErrWeakPassword = errors.New("password does not meet security requirements")
	// ErrInvalidCredentials covers both unknown username and wrong
	// password; the two are deliberately indistinguishable to the caller
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked means the identity is in its lockout window
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrAccountInactive means the identity has been deactivated
	ErrAccountInactive = errors.New("account is inactive")
	// ErrTokenExpired means the token's expiry has passed
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid covers bad signature/structure, blacklisted tokens,
	// wrong token type, and tokens with no live session
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTwoFactorRequired means the identity has a second factor enrolled
	// and the attempt carried no code
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrInsufficientPermission means the role lacks the permission
	ErrInsufficientPermission = errors.New("insufficient permissions")
	// ErrThreatBlocked is fatal to the current request; all other errors
	// are recoverable by the caller
	ErrThreatBlocked = errors.New("request blocked by threat detection")
)
