package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/aegisd/aegis/internal/config"
)

const (
	kdfIterations = 100000
	rsaKeyBits    = 2048
)

// Cipher provides the symmetric and asymmetric encryption primitives used
// to protect at-rest secrets. Symmetric payloads use AES-256-GCM with a
// key derived from the master key via PBKDF2-SHA256; sensitive payloads
// use RSA-OAEP with a per-process 2048-bit key pair.
type Cipher struct {
	aead       cipher.AEAD
	privateKey *rsa.PrivateKey
}

// NewCipher derives the symmetric key and generates the RSA key pair.
// An empty master key gets a random one, which is fine for single-process
// deployments but makes prior symmetric ciphertexts unreadable.
func NewCipher(cfg config.EncryptionConfig) (*Cipher, error) {
	masterKey := cfg.MasterKey
	if masterKey == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to generate master key: %w", err)
		}
		masterKey = hex.EncodeToString(raw)
	}

	key := pbkdf2.Key([]byte(masterKey), []byte(cfg.KDFSalt), kdfIterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return &Cipher{aead: aead, privateKey: privateKey}, nil
}

// Encrypt encrypts data with the symmetric key. The random nonce is
// prepended to the ciphertext before base64 encoding.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (c *Cipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptSensitive encrypts data with the RSA public key (OAEP-SHA256).
// Payloads are limited by the key size; intended for small secrets.
func (c *Cipher) EncryptSensitive(plaintext string) (string, error) {
	encrypted, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &c.privateKey.PublicKey, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt sensitive data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptSensitive reverses EncryptSensitive
func (c *Cipher) DecryptSensitive(encoded string) (string, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, c.privateKey, encrypted, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt sensitive data: %w", err)
	}
	return string(plaintext), nil
}

// PublicKeyPEM returns the RSA public key in PEM form for external callers
// that need to encrypt payloads for this process.
func (c *Cipher) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&c.privateKey.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return string(block), nil
}
