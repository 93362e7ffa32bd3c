package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/repository"
)

func newAuthzService(t *testing.T) *AuthzService {
	t.Helper()
	rdb := newTestRedis(t)
	return NewAuthzService(repository.NewPermissionRepository(rdb), logger.NewNop())
}

func TestAuthzService_SeedAndCheck(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))

	cases := []struct {
		role       model.Role
		permission string
		want       bool
	}{
		{model.RoleAdmin, "security:manage", true},
		{model.RoleAdmin, "user:delete", true},
		{model.RoleUser, "task:create", true},
		{model.RoleUser, "security:manage", false},
		{model.RoleUser, "user:delete", false},
		{model.RoleGuest, "user:read_own", true},
		{model.RoleGuest, "task:create", false},
		{model.RoleService, "workflow:execute", true},
		{model.RoleService, "user:read_own", false},
	}
	for _, tc := range cases {
		got, err := svc.CheckPermission(ctx, tc.role, tc.permission)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s / %s", tc.role, tc.permission)
	}
}

func TestAuthzService_UnknownRoleDenied(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))

	ok, err := svc.CheckPermission(ctx, "superuser", "user:read")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthzService_SeedRejectsEmptySet(t *testing.T) {
	svc := newAuthzService(t)

	err := svc.Seed(context.Background(), map[model.Role][]string{
		model.RoleGuest: {},
	})
	require.Error(t, err)
}

func TestAuthzService_SeedReplaces(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))
	require.NoError(t, svc.Grant(ctx, model.RoleGuest, "task:create"))

	ok, err := svc.CheckPermission(ctx, model.RoleGuest, "task:create")
	require.NoError(t, err)
	require.True(t, ok)

	// Re-seeding converges on the baseline; ad-hoc grants are dropped
	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))
	ok, err = svc.CheckPermission(ctx, model.RoleGuest, "task:create")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthzService_GrantAndRevoke(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))

	require.NoError(t, svc.Grant(ctx, model.RoleUser, "report:export"))
	ok, err := svc.CheckPermission(ctx, model.RoleUser, "report:export")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Revoke(ctx, model.RoleUser, "report:export"))
	ok, err = svc.CheckPermission(ctx, model.RoleUser, "report:export")
	require.NoError(t, err)
	require.False(t, ok)

	// Granting to a role that does not exist is refused
	require.Error(t, svc.Grant(ctx, "superuser", "report:export"))
	require.Error(t, svc.Revoke(ctx, "superuser", "report:export"))
}

func TestAuthzService_Require(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))

	require.NoError(t, svc.Require(ctx, model.RoleAdmin, "security:manage"))
	require.ErrorIs(t, svc.Require(ctx, model.RoleUser, "security:manage"), ErrInsufficientPermission)
	require.ErrorIs(t, svc.Require(ctx, "superuser", "security:manage"), ErrInsufficientPermission)
}

func TestAuthzService_Permissions(t *testing.T) {
	svc := newAuthzService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, config.PermissionSeed()))

	permissions, err := svc.Permissions(ctx, model.RoleService)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"workflow:execute", "task:execute", "system:monitor"}, permissions)
}
