package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/model"
)

// Token types carried in the "type" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenService signs and parses the bearer credentials. Tokens are
// HS256-signed JWTs; they are never mutated after issuance, only
// invalidated by blacklist insertion or session deletion.
type TokenService struct {
	cfg        config.TokenConfig
	signingKey []byte
}

// TokenClaims represents the claims carried by both token types.
type TokenClaims struct {
	jwt.RegisteredClaims
	Username  string     `json:"username,omitempty"`
	Role      model.Role `json:"role"`
	TokenType string     `json:"type"`
}

// NewTokenService creates a TokenService. An empty signing key gets a
// random one, which invalidates outstanding tokens on restart.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	return &TokenService{cfg: cfg, signingKey: key}, nil
}

// GenerateAccessToken issues a signed access token for the identity.
// Returns the token string and its unique id (jti).
func (s *TokenService) GenerateAccessToken(identity *model.Identity) (string, string, error) {
	return s.generate(identity, TokenTypeAccess, s.cfg.AccessTokenTTL)
}

// GenerateRefreshToken issues a signed refresh token for the identity.
func (s *TokenService) GenerateRefreshToken(identity *model.Identity) (string, string, error) {
	return s.generate(identity, TokenTypeRefresh, s.cfg.RefreshTokenTTL)
}

func (s *TokenService) generate(identity *model.Identity, tokenType string, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.New().String()

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Username:  identity.Username,
		Role:      identity.Role,
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, jti, nil
}

// Parse verifies the signature and standard claims of a token string.
// Expiry is exact; clock skew is not compensated. Use
// errors.Is(err, jwt.ErrTokenExpired) to distinguish expiry from other
// failures.
func (s *TokenService) Parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTokenTTL
}

// HashToken creates a SHA-256 hash of a token so raw bearer material
// never lands in the store.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
