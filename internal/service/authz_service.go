package service

import (
	"context"
	"fmt"

	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/repository"
)

// AuthzService is the authorization engine: it maps roles to permission
// sets and answers membership checks. There is no inheritance between
// roles; admin's breadth is explicit in the seed, never derived, so no
// implicit role ordering can escalate privileges.
type AuthzService struct {
	permRepo *repository.PermissionRepository
	log      *logger.Logger
}

// NewAuthzService creates a new AuthzService
func NewAuthzService(permRepo *repository.PermissionRepository, log *logger.Logger) *AuthzService {
	return &AuthzService{
		permRepo: permRepo,
		log:      log.WithComponent("authz_service"),
	}
}

// Seed installs the baseline permission sets. The seed replaces any
// existing sets, so a restart always converges on the configured
// baseline plus subsequent grants being lost by design.
func (s *AuthzService) Seed(ctx context.Context, seed map[model.Role][]string) error {
	for role, permissions := range seed {
		if len(permissions) == 0 {
			return fmt.Errorf("role %s has an empty baseline permission set", role)
		}
		if err := s.permRepo.Replace(ctx, role, permissions); err != nil {
			return err
		}
		s.log.Debug().Str("role", string(role)).Int("permissions", len(permissions)).Msg("seeded role permissions")
	}
	return nil
}

// CheckPermission reports whether the role holds the permission. Unknown
// roles and unknown permissions are denied, never allowed by default.
func (s *AuthzService) CheckPermission(ctx context.Context, role model.Role, permission string) (bool, error) {
	return s.permRepo.Has(ctx, role, permission)
}

// Require is CheckPermission as a guard: it returns
// ErrInsufficientPermission when the role lacks the permission.
func (s *AuthzService) Require(ctx context.Context, role model.Role, permission string) error {
	allowed, err := s.permRepo.Has(ctx, role, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s lacks %s", ErrInsufficientPermission, role, permission)
	}
	return nil
}

// Grant adds a permission to a role
func (s *AuthzService) Grant(ctx context.Context, role model.Role, permission string) error {
	if _, ok := model.ParseRole(string(role)); !ok {
		return fmt.Errorf("unknown role %q", string(role))
	}
	if err := s.permRepo.Add(ctx, role, permission); err != nil {
		return err
	}
	s.log.Info().Str("role", string(role)).Str("permission", permission).Msg("permission granted")
	return nil
}

// Revoke removes a permission from a role
func (s *AuthzService) Revoke(ctx context.Context, role model.Role, permission string) error {
	if _, ok := model.ParseRole(string(role)); !ok {
		return fmt.Errorf("unknown role %q", string(role))
	}
	if err := s.permRepo.Remove(ctx, role, permission); err != nil {
		return err
	}
	s.log.Info().Str("role", string(role)).Str("permission", permission).Msg("permission revoked")
	return nil
}

// Permissions returns the role's current permission set
func (s *AuthzService) Permissions(ctx context.Context, role model.Role) ([]string, error) {
	return s.permRepo.List(ctx, role)
}
