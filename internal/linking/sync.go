package linking

import (
	"context"

	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
)

// SyncPlan is the advisory answer to "can this user sync their profile".
// A user without a primary provider gets CanSync=false with a reason, not
// an error; this is a user-facing advisory path.
type SyncPlan struct {
	CanSync bool `json:"can_sync"`
	// Reason explains a false CanSync.
	Reason string `json:"reason,omitempty"`
	// Provider is the primary provider the sync would run against.
	Provider string `json:"provider,omitempty"`
	// AuthorizationURL is where the user consents to the fresh
	// authorization round trip. No provider tokens are cached server-side,
	// so every sync is re-consented.
	AuthorizationURL string `json:"authorization_url,omitempty"`
}

// InitiateProfileSync checks whether the user can sync and, if so, starts
// the authorization round trip against the primary provider.
func (s *Service) InitiateProfileSync(ctx context.Context, userID string) (*SyncPlan, error) {
	user, err := s.userForUpdate(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	if user.PrimaryProvider == "" {
		return &SyncPlan{
			CanSync: false,
			Reason:  "no linked provider is designated primary",
		}, nil
	}

	url, err := s.BeginAuth(user.PrimaryProvider, oauth.IntentSync, userID)
	if err != nil {
		return nil, err
	}

	return &SyncPlan{
		CanSync:          true,
		Provider:         user.PrimaryProvider,
		AuthorizationURL: url,
	}, nil
}

// CompleteProfileSync finishes a sync-intent callback: the freshly
// authorized identity must be the one already linked as primary, then the
// profile fields are copied over.
func (s *Service) CompleteProfileSync(ctx context.Context, userID, code, state string) (*models.User, error) {
	user, err := s.userForUpdate(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	if user.PrimaryProvider == "" {
		return nil, apperr.InvalidOperation("no primary provider to sync from")
	}

	if _, err := s.consumeState(state, user.PrimaryProvider, oauth.IntentSync, userID); err != nil {
		return nil, err
	}

	return s.syncWithCode(ctx, userID, user.PrimaryProvider, code)
}

func (s *Service) syncWithCode(ctx context.Context, userID, provider, code string) (*models.User, error) {
	unlock := s.locks.acquire(userID)
	defer unlock()

	user, err := s.userForUpdate(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	if user.PrimaryProvider != provider {
		return nil, apperr.InvalidOperation("primary provider changed while the sync was in flight")
	}

	identity, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.LinkedProvider

		if err := tx.Where("user_id = ? AND provider = ?", userID, provider).First(&link).Error; err != nil {
			return err
		}

		if link.SubjectID != identity.SubjectID {
			return apperr.OAuth("authorized a different %s account than the linked one", provider)
		}

		now := s.now()

		err := tx.Model(&models.User{}).Where("id = ?", userID).
			Updates(map[string]any{
				"display_name":         identity.Name,
				"avatar_url":           identity.AvatarURL,
				"profile_synced_at":    now,
				"last_synced_provider": provider,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.LinkedProvider{}).Where("id = ?", link.ID).
			Updates(map[string]any{
				"email":      identity.Email,
				"name":       identity.Name,
				"avatar_url": identity.AvatarURL,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return s.userForUpdate(s.db.WithContext(ctx), userID)
}
