package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/config"
)

// Low-cost parameters keep the test suite fast; production values come
// from config defaults.
func testHasher() *PasswordHasher {
	return NewPasswordHasher(config.PasswordConfig{
		Argon2Memory:      8 * 1024,
		Argon2Iterations:  1,
		Argon2Parallelism: 1,
	})
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("Str0ng!Passw0rd123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))
	require.NotContains(t, hash, "Str0ng!Passw0rd123")

	ok, err := h.Verify("Str0ng!Passw0rd123", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("Str0ng!Passw0rd124", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	h := testHasher()

	first, err := h.Hash("Str0ng!Passw0rd123")
	require.NoError(t, err)
	second, err := h.Hash("Str0ng!Passw0rd123")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestPasswordHasher_VerifyUsesEmbeddedParameters(t *testing.T) {
	// Hash with one parameter set, verify with a hasher configured
	// differently; the stored parameters must win.
	hash, err := testHasher().Hash("Str0ng!Passw0rd123")
	require.NoError(t, err)

	other := NewPasswordHasher(config.PasswordConfig{
		Argon2Memory:      16 * 1024,
		Argon2Iterations:  2,
		Argon2Parallelism: 2,
	})
	ok, err := other.Verify("Str0ng!Passw0rd123", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := testHasher()

	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$%%%$aGFzaA",
	} {
		_, err := h.Verify("Str0ng!Passw0rd123", encoded)
		require.Error(t, err, "encoded=%q", encoded)
	}
}
