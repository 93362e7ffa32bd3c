package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/config"
)

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("alice"))
	require.NoError(t, ValidateUsername("alice.bob-99_x"))
	require.NoError(t, ValidateUsername("abc"))
	require.NoError(t, ValidateUsername(strings.Repeat("a", 50)))

	require.Error(t, ValidateUsername("ab"))
	require.Error(t, ValidateUsername(strings.Repeat("a", 51)))
	require.Error(t, ValidateUsername("alice bob"))
	require.Error(t, ValidateUsername("alice@example"))
	require.Error(t, ValidateUsername(""))
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("alice@example.com"))
	require.NoError(t, ValidateEmail("a.b+c@sub.example.co"))

	require.Error(t, ValidateEmail(""))
	require.Error(t, ValidateEmail("alice"))
	require.Error(t, ValidateEmail("alice@"))
	require.Error(t, ValidateEmail("alice@example"))
	require.Error(t, ValidateEmail("@example.com"))
	require.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidatePassword(t *testing.T) {
	cfg := config.PasswordConfig{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSymbol:    true,
	}

	require.NoError(t, ValidatePassword("Str0ng!Passw0rd123", cfg))

	require.Error(t, ValidatePassword("Sh0rt!pw", cfg), "too short")
	require.Error(t, ValidatePassword("str0ng!passw0rd123", cfg), "no uppercase")
	require.Error(t, ValidatePassword("STR0NG!PASSW0RD123", cfg), "no lowercase")
	require.Error(t, ValidatePassword("Strong!Password", cfg), "no digit")
	require.Error(t, ValidatePassword("Str0ngPassw0rd123", cfg), "no symbol")
	require.Error(t, ValidatePassword("Str0ng!"+strings.Repeat("a", 128), cfg), "too long")
}

func TestValidatePassword_ToggleableClasses(t *testing.T) {
	cfg := config.PasswordConfig{MinLength: 12}

	// With all class requirements off, only length applies
	require.NoError(t, ValidatePassword("alllowercasepw", cfg))

	cfg.RequireDigit = true
	require.Error(t, ValidatePassword("alllowercasepw", cfg))
	require.NoError(t, ValidatePassword("alllowercasepw1", cfg))
}
