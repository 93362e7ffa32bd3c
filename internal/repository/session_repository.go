package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/model"
)

// SessionRepository persists session records keyed by
// (identity id, access token id), a refresh-token index pointing at the
// owning session, and the token blacklist. Sessions expire with the
// refresh token lifetime; blacklist entries carry the revoked token's
// remaining lifetime.
type SessionRepository struct {
	rdb *database.Redis
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(rdb *database.Redis) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

func sessionKey(identityID, accessTokenID string) string {
	return "session:" + identityID + ":" + accessTokenID
}

func refreshIndexKey(identityID, refreshTokenID string) string {
	return "session:refresh:" + identityID + ":" + refreshTokenID
}

func blacklistKey(tokenHash string) string {
	return "blacklist:" + tokenHash
}

// Create stores a session and its refresh index with the given TTL
func (r *SessionRepository) Create(ctx context.Context, session *model.Session, ttl time.Duration) error {
	key := sessionKey(session.IdentityID, session.AccessTokenID)
	fields := map[string]interface{}{
		"identity_id":      session.IdentityID,
		"access_token_id":  session.AccessTokenID,
		"refresh_token_id": session.RefreshTokenID,
		"ip_address":       session.IPAddress,
		"user_agent":       session.UserAgent,
		"created_at":       session.CreatedAt.Format(time.RFC3339Nano),
		"expires_at":       session.ExpiresAt.Format(time.RFC3339Nano),
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	pipe.Set(ctx, refreshIndexKey(session.IdentityID, session.RefreshTokenID), session.AccessTokenID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetByAccessTokenID retrieves the session bound to an access token id
func (r *SessionRepository) GetByAccessTokenID(ctx context.Context, identityID, accessTokenID string) (*model.Session, error) {
	data, err := r.rdb.HGetAll(ctx, sessionKey(identityID, accessTokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return decodeSession(data)
}

// GetByRefreshTokenID resolves the refresh index to the owning session
func (r *SessionRepository) GetByRefreshTokenID(ctx context.Context, identityID, refreshTokenID string) (*model.Session, error) {
	accessTokenID, err := r.rdb.Get(ctx, refreshIndexKey(identityID, refreshTokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve refresh index: %w", err)
	}
	return r.GetByAccessTokenID(ctx, identityID, accessTokenID)
}

// Exists reports whether a live session is bound to the access token id
func (r *SessionRepository) Exists(ctx context.Context, identityID, accessTokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKey(identityID, accessTokenID))
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// RotateAccessToken re-keys an existing session to a newly issued access
// token id. RENAME preserves the remaining TTL, so a refresh never
// extends the session past its refresh-token lifetime. The session
// record itself survives: same refresh linkage, same creation time.
func (r *SessionRepository) RotateAccessToken(ctx context.Context, identityID, oldAccessTokenID, newAccessTokenID string) error {
	session, err := r.GetByAccessTokenID(ctx, identityID, oldAccessTokenID)
	if err != nil {
		return err
	}

	oldKey := sessionKey(identityID, oldAccessTokenID)
	newKey := sessionKey(identityID, newAccessTokenID)
	if err := r.rdb.Rename(ctx, oldKey, newKey).Err(); err != nil {
		return fmt.Errorf("failed to re-key session: %w", err)
	}
	if err := r.rdb.HSet(ctx, newKey, "access_token_id", newAccessTokenID).Err(); err != nil {
		return fmt.Errorf("failed to update session token id: %w", err)
	}

	// Repoint the refresh index, keeping its remaining TTL
	idxKey := refreshIndexKey(identityID, session.RefreshTokenID)
	ttl, err := r.rdb.TTL(ctx, idxKey).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Until(session.ExpiresAt)
	}
	if err := r.rdb.SetWithTTL(ctx, idxKey, newAccessTokenID, ttl); err != nil {
		return fmt.Errorf("failed to update refresh index: %w", err)
	}
	return nil
}

// Delete removes a session and its refresh index. Deleting a session
// that no longer exists is not an error.
func (r *SessionRepository) Delete(ctx context.Context, identityID, accessTokenID string) error {
	session, err := r.GetByAccessTokenID(ctx, identityID, accessTokenID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := []string{
		sessionKey(identityID, accessTokenID),
		refreshIndexKey(identityID, session.RefreshTokenID),
	}
	if err := r.rdb.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// BlacklistToken records a revoked token hash for the token's remaining
// lifetime. A non-positive TTL means the token is already expired and
// needs no entry.
func (r *SessionRepository) BlacklistToken(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.SetWithTTL(ctx, blacklistKey(tokenHash), "1", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether a token hash has been revoked
func (r *SessionRepository) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.rdb.Exists(ctx, blacklistKey(tokenHash))
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return n > 0, nil
}

func decodeSession(data map[string]string) (*model.Session, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at in stored session: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, data["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at in stored session: %w", err)
	}

	return &model.Session{
		IdentityID:     data["identity_id"],
		AccessTokenID:  data["access_token_id"],
		RefreshTokenID: data["refresh_token_id"],
		IPAddress:      data["ip_address"],
		UserAgent:      data["user_agent"],
		CreatedAt:      createdAt,
		ExpiresAt:      expiresAt,
	}, nil
}
