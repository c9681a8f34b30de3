package auth

import (
	"context"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
)

// Actor is an authenticated caller: the resolved user plus the permission
// set in force for this request.
type Actor struct {
	UserID      string
	Email       string
	SessionID   string
	Permissions perm.Set
}

// ResolveActor validates a session token and resolves the owning user into
// an actor. Permissions are read fresh from the user row, never cached in
// the token, so a revoke takes effect on the very next validated request.
// A soft-deleted owner unauthenticates the session even before the sweep
// catches up with it.
func (s *Service) ResolveActor(ctx context.Context, token string) (*Actor, error) {
	sess, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, sess.UserID)
	if err != nil {
		// the session outlived its owner
		return nil, apperr.Unauthenticated("account is gone")
	}

	return &Actor{
		UserID:      user.ID,
		Email:       user.Email,
		SessionID:   sess.ID,
		Permissions: perm.NewSet(user.Permissions...),
	}, nil
}
