package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/aegisd/aegis/internal/auth"
	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/crypto"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/metrics"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/notifier"
	"github.com/aegisd/aegis/internal/repository"
)

// AuthService is the credential vault and token lifecycle manager: it
// owns identity records, validates credentials, enforces the lockout
// policy, and issues, validates, refreshes, and revokes tokens.
type AuthService struct {
	identityRepo *repository.IdentityRepository
	sessionRepo  *repository.SessionRepository
	tokenSvc     *auth.TokenService
	hasher       *crypto.PasswordHasher
	cipher       *crypto.Cipher
	recorder     *eventRecorder
	cfg          *config.Config
	log          *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	identityRepo *repository.IdentityRepository,
	sessionRepo *repository.SessionRepository,
	eventRepo *repository.EventRepository,
	tokenSvc *auth.TokenService,
	cipher *crypto.Cipher,
	alerts notifier.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		identityRepo: identityRepo,
		sessionRepo:  sessionRepo,
		tokenSvc:     tokenSvc,
		hasher:       crypto.NewPasswordHasher(cfg.Security.Password),
		cipher:       cipher,
		recorder:     newEventRecorder(eventRepo, alerts, log),
		cfg:          cfg,
		log:          log.WithComponent("auth_service"),
	}
}

// RegisterRequest contains the data for registering a new identity
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

// Register creates a new identity. The password is stored only as an
// Argon2id hash; no plaintext secret is persisted, logged, or returned.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := auth.ValidateUsername(req.Username); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := auth.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidFormat, err.Error())
	}

	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password); err != nil {
		return "", fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidFormat, string(req.Role))
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &model.Identity{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		Verified:     false,
		CreatedAt:    time.Now(),
	}

	if err := s.identityRepo.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrDuplicateIdentity
		}
		return "", fmt.Errorf("failed to create identity: %w", err)
	}

	s.log.Info().Str("identity_id", identity.ID).Str("username", identity.Username).Msg("identity registered")

	return identity.ID, nil
}

// AuthenticateRequest contains the data for an authentication attempt
type AuthenticateRequest struct {
	Username      string
	Password      string
	TwoFactorCode string
	IPAddress     string
	UserAgent     string
}

// TokenPair is the result of a successful authentication
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Authenticate verifies credentials and issues a token pair. The lockout
// check runs before the password hash is touched so a locked account
// short-circuits cheaply; failures are counted with a single atomic
// increment and the lockout decision is made from its return value.
func (s *AuthService) Authenticate(ctx context.Context, req AuthenticateRequest) (*TokenPair, error) {
	identity, err := s.identityRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recorder.record(ctx, "", model.EventFailedLogin, model.SeverityMedium,
				fmt.Sprintf("Login attempt with non-existent username: %s", req.Username),
				req.IPAddress, req.UserAgent, nil)
			metrics.AuthAttempt("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if identity.IsLocked() {
		s.recorder.record(ctx, identity.ID, model.EventLockedAccountAccess, model.SeverityHigh,
			fmt.Sprintf("Access attempt on locked account: %s", identity.Username),
			req.IPAddress, req.UserAgent, nil)
		metrics.AuthAttempt("locked")
		return nil, ErrAccountLocked
	}
	if identity.LockExpired() {
		// Lazy expiry: drop the stale lockout so later checks don't keep
		// comparing against it
		if err := s.identityRepo.ClearLock(ctx, identity.ID); err != nil {
			s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to clear expired lock")
		}
	}

	match, err := s.hasher.Verify(req.Password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, s.handleFailedAttempt(ctx, identity, req, "invalid_password")
	}

	if !identity.Active {
		s.recorder.record(ctx, identity.ID, model.EventInactiveAccountAccess, model.SeverityMedium,
			fmt.Sprintf("Login attempt on inactive account: %s", identity.Username),
			req.IPAddress, req.UserAgent, nil)
		metrics.AuthAttempt("inactive")
		return nil, ErrAccountInactive
	}

	if identity.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			metrics.AuthAttempt("two_factor_required")
			return nil, ErrTwoFactorRequired
		}
		secret, err := s.cipher.Decrypt(identity.TwoFactorSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt two-factor secret: %w", err)
		}
		if !totp.Validate(req.TwoFactorCode, secret) {
			return nil, s.handleFailedAttempt(ctx, identity, req, "invalid_two_factor_code")
		}
	}

	now := time.Now()
	if err := s.identityRepo.ResetFailureState(ctx, identity.ID); err != nil {
		s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to reset failure state")
	}
	if err := s.identityRepo.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to update last login")
	}

	pair, err := s.issueTokens(ctx, identity, req.IPAddress, req.UserAgent, now)
	if err != nil {
		return nil, err
	}

	s.recorder.record(ctx, identity.ID, model.EventSuccessfulLogin, model.SeverityLow,
		fmt.Sprintf("Successful login for user: %s", identity.Username),
		req.IPAddress, req.UserAgent, nil)
	metrics.AuthAttempt("success")

	s.log.Info().Str("identity_id", identity.ID).Msg("identity authenticated")

	return pair, nil
}

// handleFailedAttempt counts a failed attempt and locks the account at
// the configured threshold. The increment and the lock decision form one
// logical step; two parallel failures both count.
func (s *AuthService) handleFailedAttempt(ctx context.Context, identity *model.Identity, req AuthenticateRequest, reason string) error {
	attempts, err := s.identityRepo.IncrementFailedAttempts(ctx, identity.ID)
	if err != nil {
		s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to count failed attempt")
	}

	if attempts >= s.cfg.Security.Lockout.MaxFailedAttempts {
		until := time.Now().Add(s.cfg.Security.Lockout.Duration)
		if err := s.identityRepo.SetLockedUntil(ctx, identity.ID, until); err != nil {
			s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to set lockout")
		}
		s.recorder.record(ctx, identity.ID, model.EventAccountLocked, model.SeverityHigh,
			fmt.Sprintf("Account locked due to %d failed login attempts", s.cfg.Security.Lockout.MaxFailedAttempts),
			req.IPAddress, req.UserAgent, map[string]interface{}{"failed_attempts": attempts})
		metrics.Lockout()
	}

	s.recorder.record(ctx, identity.ID, model.EventFailedLogin, model.SeverityMedium,
		fmt.Sprintf("Failed login attempt for user: %s", identity.Username),
		req.IPAddress, req.UserAgent, map[string]interface{}{"reason": reason, "failed_attempts": attempts})
	metrics.AuthAttempt("invalid_credentials")

	return ErrInvalidCredentials
}

func (s *AuthService) issueTokens(ctx context.Context, identity *model.Identity, ipAddress, userAgent string, now time.Time) (*TokenPair, error) {
	accessToken, accessID, err := s.tokenSvc.GenerateAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, refreshID, err := s.tokenSvc.GenerateRefreshToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	session := &model.Session{
		IdentityID:     identity.ID,
		AccessTokenID:  accessID,
		RefreshTokenID: refreshID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.tokenSvc.RefreshTokenTTL()),
	}
	if err := s.sessionRepo.Create(ctx, session, s.tokenSvc.RefreshTokenTTL()); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.TokenIssued(auth.TokenTypeAccess)
	metrics.TokenIssued(auth.TokenTypeRefresh)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenSvc.AccessTokenTTL().Seconds()),
	}, nil
}

// ValidateToken checks an access token end to end: signature, expiry,
// blacklist, session existence, and the identity's current active flag.
// A structurally valid, unexpired token with no session is still
// rejected; sessions are the source of truth for "still live".
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*auth.TokenClaims, error) {
	claims, err := s.tokenSvc.Parse(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return nil, ErrTokenInvalid
	}

	blacklisted, err := s.sessionRepo.IsBlacklisted(ctx, auth.HashToken(tokenString))
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, ErrTokenInvalid
	}

	exists, err := s.sessionRepo.Exists(ctx, claims.Subject, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return nil, ErrTokenInvalid
	}

	identity, err := s.identityRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if !identity.Active {
		return nil, ErrAccountInactive
	}

	return claims, nil
}

// RefreshToken exchanges a refresh token for a new access token. The
// existing session is re-keyed to the new access token id; no new
// session is created.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenSvc.Parse(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if claims.TokenType != auth.TokenTypeRefresh {
		return "", ErrTokenInvalid
	}

	blacklisted, err := s.sessionRepo.IsBlacklisted(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return "", fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return "", ErrTokenInvalid
	}

	identity, err := s.identityRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("failed to look up identity: %w", err)
	}
	if !identity.Active {
		return "", ErrAccountInactive
	}

	session, err := s.sessionRepo.GetByRefreshTokenID(ctx, identity.ID, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	accessToken, accessID, err := s.tokenSvc.GenerateAccessToken(identity)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	if err := s.sessionRepo.RotateAccessToken(ctx, identity.ID, session.AccessTokenID, accessID); err != nil {
		return "", fmt.Errorf("failed to rotate session: %w", err)
	}

	metrics.TokenIssued(auth.TokenTypeAccess)

	return accessToken, nil
}

// Logout revokes a token: it is blacklisted for its remaining lifetime
// and the bound session is destroyed. Revoking a token whose session is
// already gone is a no-op success.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokenSvc.Parse(tokenString)
	if err != nil {
		return ErrTokenInvalid
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if err := s.sessionRepo.BlacklistToken(ctx, auth.HashToken(tokenString), remaining); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	switch claims.TokenType {
	case auth.TokenTypeAccess:
		if err := s.sessionRepo.Delete(ctx, claims.Subject, claims.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	case auth.TokenTypeRefresh:
		session, err := s.sessionRepo.GetByRefreshTokenID(ctx, claims.Subject, claims.ID)
		if err == nil {
			if err := s.sessionRepo.Delete(ctx, claims.Subject, session.AccessTokenID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to look up session: %w", err)
		}
	default:
		return ErrTokenInvalid
	}

	s.log.Info().Str("identity_id", claims.Subject).Str("token_type", claims.TokenType).Msg("token revoked")

	return nil
}

// VerifyPassword checks a password against the stored hash for the
// identity. Verification recomputes and compares, never decrypts.
func (s *AuthService) VerifyPassword(ctx context.Context, identityID, password string) (bool, error) {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return false, err
	}
	return s.hasher.Verify(password, identity.PasswordHash)
}

// GetIdentity returns the identity record by id
func (s *AuthService) GetIdentity(ctx context.Context, identityID string) (*model.Identity, error) {
	return s.identityRepo.GetByID(ctx, identityID)
}

// SetActive activates or deactivates an identity. Deactivation takes
// effect on the next validation of any outstanding token.
func (s *AuthService) SetActive(ctx context.Context, identityID string, active bool) error {
	return s.identityRepo.SetActive(ctx, identityID, active)
}

// UnlockAccount clears a lockout and the failure counter. Operator use.
func (s *AuthService) UnlockAccount(ctx context.Context, identityID, ipAddress, userAgent string) error {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if err := s.identityRepo.ResetFailureState(ctx, identity.ID); err != nil {
		return fmt.Errorf("failed to reset failure state: %w", err)
	}

	s.recorder.record(ctx, identity.ID, model.EventAccountUnlocked, model.SeverityLow,
		fmt.Sprintf("Account unlocked by operator: %s", identity.Username),
		ipAddress, userAgent, nil)

	s.log.Info().Str("identity_id", identity.ID).Msg("account unlocked")
	return nil
}

// EnrollTwoFactor generates a TOTP secret for the identity, stores it
// encrypted at rest, and returns the secret and otpauth URL for the
// enrolling client. The secret is returned exactly once.
func (s *AuthService) EnrollTwoFactor(ctx context.Context, identityID string) (secret, otpauthURL string, err error) {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Security.TwoFactor.Issuer,
		AccountName: identity.Username,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate two-factor secret: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(key.Secret())
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt two-factor secret: %w", err)
	}
	if err := s.identityRepo.SetTwoFactor(ctx, identity.ID, true, encrypted); err != nil {
		return "", "", err
	}

	s.recorder.record(ctx, identity.ID, model.EventTwoFactorEnrolled, model.SeverityLow,
		fmt.Sprintf("Two-factor authentication enrolled for user: %s", identity.Username),
		"", "", nil)

	return key.Secret(), key.URL(), nil
}

// DisableTwoFactor removes the identity's second factor
func (s *AuthService) DisableTwoFactor(ctx context.Context, identityID string) error {
	identity, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if err := s.identityRepo.SetTwoFactor(ctx, identity.ID, false, ""); err != nil {
		return err
	}

	s.recorder.record(ctx, identity.ID, model.EventTwoFactorDisabled, model.SeverityLow,
		fmt.Sprintf("Two-factor authentication disabled for user: %s", identity.Username),
		"", "", nil)

	return nil
}

// ListSecurityEvents returns the most recent events from the log
func (s *AuthService) ListSecurityEvents(ctx context.Context, limit int64) ([]*model.SecurityEvent, error) {
	return s.recorder.events.List(ctx, limit)
}
