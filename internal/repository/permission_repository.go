package repository

import (
	"context"
	"fmt"

	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/model"
)

// PermissionRepository persists role permission sets. Checks are plain
// set membership; an absent role or permission reads as denied.
type PermissionRepository struct {
	rdb *database.Redis
}

// NewPermissionRepository creates a new PermissionRepository
func NewPermissionRepository(rdb *database.Redis) *PermissionRepository {
	return &PermissionRepository{rdb: rdb}
}

func rolePermissionsKey(role model.Role) string {
	return "role:permissions:" + string(role)
}

// Replace overwrites a role's permission set with the given permissions
func (r *PermissionRepository) Replace(ctx context.Context, role model.Role, permissions []string) error {
	key := rolePermissionsKey(role)

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, key)
	members := make([]interface{}, len(permissions))
	for i, p := range permissions {
		members[i] = p
	}
	pipe.SAdd(ctx, key, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace permissions for role %s: %w", role, err)
	}
	return nil
}

// Has reports whether the role's set contains the permission
func (r *PermissionRepository) Has(ctx context.Context, role model.Role, permission string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, rolePermissionsKey(role), permission).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return ok, nil
}

// Add grants a permission to the role
func (r *PermissionRepository) Add(ctx context.Context, role model.Role, permission string) error {
	if err := r.rdb.SAdd(ctx, rolePermissionsKey(role), permission).Err(); err != nil {
		return fmt.Errorf("failed to add permission: %w", err)
	}
	return nil
}

// Remove revokes a permission from the role
func (r *PermissionRepository) Remove(ctx context.Context, role model.Role, permission string) error {
	if err := r.rdb.SRem(ctx, rolePermissionsKey(role), permission).Err(); err != nil {
		return fmt.Errorf("failed to remove permission: %w", err)
	}
	return nil
}

// List returns the role's permission set
func (r *PermissionRepository) List(ctx context.Context, role model.Role) ([]string, error) {
	members, err := r.rdb.SMembers(ctx, rolePermissionsKey(role)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return members, nil
}
