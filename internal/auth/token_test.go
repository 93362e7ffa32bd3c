package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/model"
)

func testTokenService(t *testing.T, cfg config.TokenConfig) *TokenService {
	t.Helper()
	if cfg.SigningKey == "" {
		cfg.SigningKey = "test-signing-key-test-signing-key"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "aegis"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 168 * time.Hour
	}
	svc, err := NewTokenService(cfg)
	require.NoError(t, err)
	return svc
}

func testIdentity() *model.Identity {
	return &model.Identity{
		ID:       "id-1234",
		Username: "alice",
		Role:     model.RoleUser,
	}
}

func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})

	token, jti, err := svc.GenerateAccessToken(testIdentity())
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "id-1234", claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, model.RoleUser, claims.Role)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
	require.Equal(t, jti, claims.ID)
	require.Equal(t, "aegis", claims.Issuer)
}

func TestTokenService_RefreshTokenType(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})

	token, _, err := svc.GenerateRefreshToken(testIdentity())
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})
	identity := testIdentity()

	_, first, err := svc.GenerateAccessToken(identity)
	require.NoError(t, err)
	_, second, err := svc.GenerateAccessToken(identity)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestTokenService_RejectsTampering(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})

	token, _, err := svc.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))

	_, err = svc.Parse(tampered)
	require.Error(t, err)
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})
	other := testTokenService(t, config.TokenConfig{SigningKey: "another-key-another-key-another"})

	token, _, err := svc.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestTokenService_ExpiredToken(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{AccessTokenTTL: -time.Minute})

	token, _, err := svc.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = svc.Parse(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestTokenService_RejectsUnsignedToken(t *testing.T) {
	svc := testTokenService(t, config.TokenConfig{})

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "id-1234"},
		TokenType:        TokenTypeAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Parse(unsigned)
	require.Error(t, err)
}

func TestHashToken(t *testing.T) {
	first := HashToken("token-a")
	second := HashToken("token-a")
	other := HashToken("token-b")

	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
	require.Len(t, first, 64)
	require.NotContains(t, first, "token-a")
}
