package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/model"
)

func newTestRedis(t *testing.T) *database.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return database.NewRedisFromClient(client)
}

func testIdentity(id, username string) *model.Identity {
	return &model.Identity{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Role:         model.RoleUser,
		Active:       true,
		CreatedAt:    time.Now().Truncate(time.Millisecond),
	}
}

func TestIdentityRepository_CreateAndGet(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	identity := testIdentity("id-1", "alice")
	require.NoError(t, repo.Create(ctx, identity))

	got, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, identity.Username, got.Username)
	require.Equal(t, identity.Email, got.Email)
	require.Equal(t, identity.PasswordHash, got.PasswordHash)
	require.Equal(t, model.RoleUser, got.Role)
	require.True(t, got.Active)
	require.True(t, got.CreatedAt.Equal(identity.CreatedAt))
	require.Nil(t, got.LastLogin)
	require.Nil(t, got.LockedUntil)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "id-1", byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "id-1", byEmail.ID)
}

func TestIdentityRepository_NotFound(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByUsername(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityRepository_DuplicateIndices(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testIdentity("id-1", "alice")))

	// Same username
	err := repo.Create(ctx, testIdentity("id-2", "alice"))
	require.ErrorIs(t, err, ErrDuplicate)

	// Same email, new username; the username claim must be rolled back
	dup := testIdentity("id-3", "bob")
	dup.Email = "alice@example.com"
	err = repo.Create(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicate)

	fresh := testIdentity("id-4", "bob")
	require.NoError(t, repo.Create(ctx, fresh))
}

func TestIdentityRepository_FailureState(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testIdentity("id-1", "alice")))

	for want := 1; want <= 3; want++ {
		n, err := repo.IncrementFailedAttempts(ctx, "id-1")
		require.NoError(t, err)
		require.Equal(t, want, n)
	}

	until := time.Now().Add(30 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, repo.SetLockedUntil(ctx, "id-1", until))

	got, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, 3, got.FailedAttempts)
	require.NotNil(t, got.LockedUntil)
	require.True(t, got.LockedUntil.Equal(until))
	require.True(t, got.IsLocked())

	require.NoError(t, repo.ResetFailureState(ctx, "id-1"))
	got, err = repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
	require.False(t, got.IsLocked())
}

func TestIdentityRepository_ClearLockKeepsCounter(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testIdentity("id-1", "alice")))
	_, err := repo.IncrementFailedAttempts(ctx, "id-1")
	require.NoError(t, err)
	require.NoError(t, repo.SetLockedUntil(ctx, "id-1", time.Now().Add(-time.Minute)))

	require.NoError(t, repo.ClearLock(ctx, "id-1"))

	got, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Nil(t, got.LockedUntil)
	require.Equal(t, 1, got.FailedAttempts)
}

func TestIdentityRepository_SetActive(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testIdentity("id-1", "alice")))

	require.NoError(t, repo.SetActive(ctx, "id-1", false))
	got, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.False(t, got.Active)

	require.ErrorIs(t, repo.SetActive(ctx, "missing", true), ErrNotFound)
}

func TestIdentityRepository_LastLoginAndTwoFactor(t *testing.T) {
	repo := NewIdentityRepository(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testIdentity("id-1", "alice")))

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdateLastLogin(ctx, "id-1", at))
	require.NoError(t, repo.SetTwoFactor(ctx, "id-1", true, "encrypted-blob"))

	got, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	require.True(t, got.LastLogin.Equal(at))
	require.True(t, got.TwoFactorEnabled)
	require.Equal(t, "encrypted-blob", got.TwoFactorSecret)
}
