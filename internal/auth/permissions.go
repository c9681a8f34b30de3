package auth

import (
	"context"

	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
)

// GetPermissions returns a user's permission list, sorted.
func (s *Service) GetPermissions(ctx context.Context, userID string) ([]string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return perm.NewSet(user.Permissions...).Slice(), nil
}

// GrantPermissions adds permissions to a user's set and returns the result.
func (s *Service) GrantPermissions(ctx context.Context, userID string, grant []string) ([]string, error) {
	if err := perm.ValidateAll(grant); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := perm.NewSet(user.Permissions...)
	for _, p := range grant {
		set[p] = struct{}{}
	}

	return s.storePermissions(ctx, userID, set)
}

// RevokePermissions removes permissions from a user's set and returns the
// result. Revoking a concrete permission while the wildcard remains present
// mutates the stored set but does not change any authorization outcome; the
// returned set makes the surviving wildcard visible to the caller.
func (s *Service) RevokePermissions(ctx context.Context, userID string, revoke []string) ([]string, error) {
	if err := perm.ValidateAll(revoke); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := perm.NewSet(user.Permissions...)
	for _, p := range revoke {
		delete(set, p)
	}

	return s.storePermissions(ctx, userID, set)
}

// ReplacePermissions swaps a user's entire permission set.
func (s *Service) ReplacePermissions(ctx context.Context, userID string, permissions []string) ([]string, error) {
	if err := perm.ValidateAll(permissions); err != nil {
		return nil, err
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	return s.storePermissions(ctx, userID, perm.NewSet(permissions...))
}

func (s *Service) storePermissions(ctx context.Context, userID string, set perm.Set) ([]string, error) {
	list := models.StringList(set.Slice())

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("permissions", list).Error
	if err != nil {
		return nil, err
	}

	return list, nil
}
