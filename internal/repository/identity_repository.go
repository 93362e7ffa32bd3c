package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/model"
)

// IdentityRepository persists identity records as Redis hashes with
// username and email secondary indices. The failure counter is mutated
// only through an atomic increment so parallel failed attempts all count.
type IdentityRepository struct {
	rdb *database.Redis
}

// NewIdentityRepository creates a new IdentityRepository
func NewIdentityRepository(rdb *database.Redis) *IdentityRepository {
	return &IdentityRepository{rdb: rdb}
}

func identityKey(id string) string   { return "identity:" + id }
func usernameKey(name string) string { return "identity:username:" + name }
func emailKey(email string) string   { return "identity:email:" + email }

// Create stores a new identity and its indices. Fails with ErrDuplicate
// if the username or email index is already claimed.
func (r *IdentityRepository) Create(ctx context.Context, identity *model.Identity) error {
	// Claim both indices first; SETNX makes the claim atomic per index
	ok, err := r.rdb.SetNX(ctx, usernameKey(identity.Username), identity.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim username index: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}

	ok, err = r.rdb.SetNX(ctx, emailKey(identity.Email), identity.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email index: %w", err)
	}
	if !ok {
		// Roll back the username claim so the name is not orphaned
		r.rdb.Del(ctx, usernameKey(identity.Username))
		return ErrDuplicate
	}

	if err := r.rdb.HSet(ctx, identityKey(identity.ID), encodeIdentity(identity)).Err(); err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}
	return nil
}

// GetByID retrieves an identity by id
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	data, err := r.rdb.HGetAll(ctx, identityKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return decodeIdentity(data)
}

// GetByUsername retrieves an identity through the username index
func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*model.Identity, error) {
	id, err := r.rdb.Get(ctx, usernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByEmail retrieves an identity through the email index
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	id, err := r.rdb.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}
	return r.GetByID(ctx, id)
}

// IncrementFailedAttempts atomically increments the failure counter and
// returns the new value. The caller decides on lockout from the returned
// count in the same logical step, so a cancelled request never leaves a
// half-applied failure.
func (r *IdentityRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	n, err := r.rdb.HashIncrBy(ctx, identityKey(id), "failed_attempts", 1)
	if err != nil {
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}
	return int(n), nil
}

// SetLockedUntil records a lockout expiry on the identity
func (r *IdentityRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	if err := r.rdb.HSet(ctx, identityKey(id), "locked_until", until.Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("failed to set lockout: %w", err)
	}
	return nil
}

// ClearLock removes a stale lockout expiry without touching the counter
func (r *IdentityRepository) ClearLock(ctx context.Context, id string) error {
	if err := r.rdb.HSet(ctx, identityKey(id), "locked_until", "").Err(); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

// ResetFailureState clears the failure counter and any lockout
func (r *IdentityRepository) ResetFailureState(ctx context.Context, id string) error {
	fields := map[string]interface{}{
		"failed_attempts": "0",
		"locked_until":    "",
	}
	if err := r.rdb.HSet(ctx, identityKey(id), fields).Err(); err != nil {
		return fmt.Errorf("failed to reset failure state: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login time
func (r *IdentityRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := r.rdb.HSet(ctx, identityKey(id), "last_login", at.Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// SetActive flips the active flag
func (r *IdentityRepository) SetActive(ctx context.Context, id string, active bool) error {
	n, err := r.rdb.Exists(ctx, identityKey(id))
	if err != nil {
		return fmt.Errorf("failed to check identity: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := r.rdb.HSet(ctx, identityKey(id), "active", strconv.FormatBool(active)).Err(); err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	return nil
}

// SetTwoFactor stores the two-factor state. The secret must already be
// encrypted by the caller; this layer never sees plaintext secrets.
func (r *IdentityRepository) SetTwoFactor(ctx context.Context, id string, enabled bool, encryptedSecret string) error {
	fields := map[string]interface{}{
		"two_factor_enabled": strconv.FormatBool(enabled),
		"two_factor_secret":  encryptedSecret,
	}
	if err := r.rdb.HSet(ctx, identityKey(id), fields).Err(); err != nil {
		return fmt.Errorf("failed to set two-factor state: %w", err)
	}
	return nil
}

func encodeIdentity(i *model.Identity) map[string]interface{} {
	lastLogin := ""
	if i.LastLogin != nil {
		lastLogin = i.LastLogin.Format(time.RFC3339Nano)
	}
	lockedUntil := ""
	if i.LockedUntil != nil {
		lockedUntil = i.LockedUntil.Format(time.RFC3339Nano)
	}
	return map[string]interface{}{
		"id":                 i.ID,
		"username":           i.Username,
		"email":              i.Email,
		"password_hash":      i.PasswordHash,
		"role":               string(i.Role),
		"active":             strconv.FormatBool(i.Active),
		"verified":           strconv.FormatBool(i.Verified),
		"created_at":         i.CreatedAt.Format(time.RFC3339Nano),
		"last_login":         lastLogin,
		"failed_attempts":    strconv.Itoa(i.FailedAttempts),
		"locked_until":       lockedUntil,
		"two_factor_enabled": strconv.FormatBool(i.TwoFactorEnabled),
		"two_factor_secret":  i.TwoFactorSecret,
	}
}

func decodeIdentity(data map[string]string) (*model.Identity, error) {
	role, ok := model.ParseRole(data["role"])
	if !ok {
		return nil, fmt.Errorf("unknown role %q in stored identity", data["role"])
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at in stored identity: %w", err)
	}

	failedAttempts, _ := strconv.Atoi(data["failed_attempts"])

	identity := &model.Identity{
		ID:               data["id"],
		Username:         data["username"],
		Email:            data["email"],
		PasswordHash:     data["password_hash"],
		Role:             role,
		Active:           data["active"] == "true",
		Verified:         data["verified"] == "true",
		CreatedAt:        createdAt,
		FailedAttempts:   failedAttempts,
		TwoFactorEnabled: data["two_factor_enabled"] == "true",
		TwoFactorSecret:  data["two_factor_secret"],
	}

	if v := data["last_login"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			identity.LastLogin = &t
		}
	}
	if v := data["locked_until"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			identity.LockedUntil = &t
		}
	}

	return identity, nil
}
