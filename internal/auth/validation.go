package auth

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/aegisd/aegis/internal/config"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername validates username format: 3-50 characters from
// [A-Za-z0-9_.-].
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, '_', '.', and '-'")
	}
	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if len(email) > 255 || !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword validates a password against the configured policy.
// Minimum length always applies; each character-class requirement is
// independently toggleable.
func ValidatePassword(password string, cfg config.PasswordConfig) error {
	minLength := cfg.MinLength
	if minLength == 0 {
		minLength = 12
	}

	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	// Cap length to keep hashing cost bounded
	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}

	hasUpper, hasLower, hasDigit, hasSymbol := false, false, false, false
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if cfg.RequireUppercase && !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if cfg.RequireLowercase && !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if cfg.RequireDigit && !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	if cfg.RequireSymbol && !hasSymbol {
		return fmt.Errorf("password must contain a symbol")
	}

	return nil
}
