package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "user", "guest", "service"} {
		role, ok := ParseRole(valid)
		require.True(t, ok)
		require.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "Admin", "superuser", "root"} {
		_, ok := ParseRole(invalid)
		require.False(t, ok, "input %q", invalid)
	}
}

func TestIdentity_LockState(t *testing.T) {
	identity := &Identity{}
	require.False(t, identity.IsLocked())
	require.False(t, identity.LockExpired())

	future := time.Now().Add(time.Hour)
	identity.LockedUntil = &future
	require.True(t, identity.IsLocked())
	require.False(t, identity.LockExpired())

	past := time.Now().Add(-time.Hour)
	identity.LockedUntil = &past
	require.False(t, identity.IsLocked())
	require.True(t, identity.LockExpired())
}

func TestIdentity_JSONHidesSecrets(t *testing.T) {
	identity := &Identity{
		ID:              "id-1",
		Username:        "alice",
		PasswordHash:    "$argon2id$hash",
		TwoFactorSecret: "encrypted-secret",
		FailedAttempts:  3,
	}

	data, err := json.Marshal(identity)
	require.NoError(t, err)
	require.NotContains(t, string(data), "argon2id")
	require.NotContains(t, string(data), "encrypted-secret")
	require.NotContains(t, string(data), "failed")
}

func TestSeverity_AtLeast(t *testing.T) {
	require.True(t, SeverityCritical.AtLeast(SeverityHigh))
	require.True(t, SeverityHigh.AtLeast(SeverityHigh))
	require.False(t, SeverityMedium.AtLeast(SeverityHigh))
	require.False(t, SeverityLow.AtLeast(SeverityMedium))
	require.True(t, SeverityLow.AtLeast(SeverityLow))

	// Unknown severities never satisfy a threshold
	require.False(t, Severity("unknown").AtLeast(SeverityLow))
}
