package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/config"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(config.EncryptionConfig{
		MasterKey: "test-master-key",
		KDFSalt:   "test.kdf.v1",
	})
	require.NoError(t, err)
	return c
}

func TestCipher_SymmetricRoundTrip(t *testing.T) {
	c := testCipher(t)

	encrypted, err := c.Encrypt("the secret payload")
	require.NoError(t, err)
	require.NotContains(t, encrypted, "secret")

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	require.Equal(t, "the secret payload", decrypted)
}

func TestCipher_SymmetricNonceUnique(t *testing.T) {
	c := testCipher(t)

	first, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestCipher_DecryptRejectsTampering(t *testing.T) {
	c := testCipher(t)

	encrypted, err := c.Encrypt("the secret payload")
	require.NoError(t, err)

	// Flip a character in the encoded ciphertext
	tampered := []byte(encrypted)
	if tampered[len(tampered)-5] == 'A' {
		tampered[len(tampered)-5] = 'B'
	} else {
		tampered[len(tampered)-5] = 'A'
	}

	_, err = c.Decrypt(string(tampered))
	require.Error(t, err)
}

func TestCipher_DecryptRejectsGarbage(t *testing.T) {
	c := testCipher(t)

	_, err := c.Decrypt("not base64 %%%")
	require.Error(t, err)

	_, err = c.Decrypt("c2hvcnQ")
	require.Error(t, err)
}

func TestCipher_WrongKeyCannotDecrypt(t *testing.T) {
	c := testCipher(t)
	other, err := NewCipher(config.EncryptionConfig{
		MasterKey: "a-different-master-key",
		KDFSalt:   "test.kdf.v1",
	})
	require.NoError(t, err)

	encrypted, err := c.Encrypt("the secret payload")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	require.Error(t, err)
}

func TestCipher_SensitiveRoundTrip(t *testing.T) {
	c := testCipher(t)

	encrypted, err := c.EncryptSensitive("pii-payload")
	require.NoError(t, err)

	decrypted, err := c.DecryptSensitive(encrypted)
	require.NoError(t, err)
	require.Equal(t, "pii-payload", decrypted)
}

func TestCipher_PublicKeyPEM(t *testing.T) {
	c := testCipher(t)

	pemStr, err := c.PublicKeyPEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))
}
