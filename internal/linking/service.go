// Package linking manages the set of OAuth providers attached to one user:
// linking, unlinking, primary designation, OAuth login, and profile
// re-synchronization from the primary provider.
//
// Invariants: a provider identity belongs to at most one user, at most one
// linked provider is primary, and a user always keeps at least one
// authentication method (a password or one linked provider).
package linking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
)

// stateTTL bounds how long an authorization round trip may take, covering
// the user reading a consent screen but not a parked browser tab.
const stateTTL = 10 * time.Minute

// Service drives the account-linking state machine.
type Service struct {
	db        *gorm.DB
	exchanger oauth.Exchanger
	states    *oauth.StateStore
	registry  *roles.Registry
	locks     *userLocks

	// exchangeTimeout bounds every upstream exchange; on timeout the
	// operation fails visibly and is never retried here.
	exchangeTimeout time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates the account-linking service.
func NewService(db *gorm.DB, exchanger oauth.Exchanger, registry *roles.Registry, exchangeTimeout time.Duration) *Service {
	if exchangeTimeout == 0 {
		exchangeTimeout = 10 * time.Second
	}

	return &Service{
		db:              db,
		exchanger:       exchanger,
		states:          oauth.NewStateStore(stateTTL),
		registry:        registry,
		locks:           newUserLocks(),
		exchangeTimeout: exchangeTimeout,
		now:             time.Now,
	}
}

// Providers lists the configured provider names.
func (s *Service) Providers() []string {
	return s.exchanger.Providers()
}

// BeginAuth starts an authorization round trip and returns the provider URL
// to send the user to. userID is empty for login intent.
func (s *Service) BeginAuth(provider string, intent oauth.Intent, userID string) (string, error) {
	state, err := s.states.Issue(oauth.StatePayload{Provider: provider, Intent: intent, UserID: userID})
	if err != nil {
		return "", err
	}

	return s.exchanger.AuthCodeURL(provider, state)
}

// CompleteLogin finishes a login-intent callback: the provider identity
// resolves to its linked user, or registers a fresh user on first OAuth
// login. A provider email colliding with an existing unlinked account is a
// conflict; linking over it requires logging into that account first.
func (s *Service) CompleteLogin(ctx context.Context, provider, code, state string) (*models.User, error) {
	if _, err := s.consumeState(state, provider, oauth.IntentLogin, ""); err != nil {
		return nil, err
	}

	return s.loginWithCode(ctx, provider, code)
}

func (s *Service) loginWithCode(ctx context.Context, provider, code string) (*models.User, error) {
	identity, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	var link models.LinkedProvider

	err = s.db.WithContext(ctx).
		Where("provider = ? AND subject_id = ?", provider, identity.SubjectID).
		First(&link).Error

	switch {
	case err == nil:
		var user models.User
		if err := s.db.WithContext(ctx).Where("id = ?", link.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// soft-deleted owner: the identity stays claimed but no
				// session may be issued for it
				return nil, apperr.Unauthenticated("account is gone")
			}

			return nil, err
		}

		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.registerFromIdentity(ctx, provider, identity)
	default:
		return nil, err
	}
}

// Link attaches a provider identity to an existing user. The first linked
// provider becomes primary.
func (s *Service) Link(ctx context.Context, userID, provider, code, state string) (*models.LinkedProvider, error) {
	if _, err := s.consumeState(state, provider, oauth.IntentLink, userID); err != nil {
		return nil, err
	}

	return s.linkWithCode(ctx, userID, provider, code)
}

func (s *Service) linkWithCode(ctx context.Context, userID, provider, code string) (*models.LinkedProvider, error) {
	identity, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	var created models.LinkedProvider

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userForUpdate(tx, userID)
		if err != nil {
			return err
		}

		var existing models.LinkedProvider

		err = tx.Where("provider = ? AND subject_id = ?", provider, identity.SubjectID).First(&existing).Error
		if err == nil {
			if existing.UserID == userID {
				return apperr.Conflict("provider %q is already linked to this account", provider)
			}

			return apperr.Conflict("this %s identity is already linked to another account", provider)
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("user_id = ? AND provider = ?", userID, provider).First(&existing).Error
		if err == nil {
			return apperr.Conflict("provider %q is already linked to this account", provider)
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		created = models.LinkedProvider{
			ID:        uuid.NewString(),
			UserID:    userID,
			Provider:  provider,
			SubjectID: identity.SubjectID,
			Email:     identity.Email,
			Name:      identity.Name,
			AvatarURL: identity.AvatarURL,
			LinkedAt:  s.now(),
		}

		if err := tx.Create(&created).Error; err != nil {
			return apperr.Conflict("this %s identity is already linked to another account", provider).WithCause(err)
		}

		if user.PrimaryProvider == "" {
			return tx.Model(&models.User{}).Where("id = ?", userID).
				Update("primary_provider", provider).Error
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// Unlink detaches a provider. Removing the last authentication method is
// rejected; an unlinked primary is reassigned to the earliest remaining
// link, or cleared when a password makes password-only a valid end state.
func (s *Service) Unlink(ctx context.Context, userID, provider string) error {
	unlock := s.locks.acquire(userID)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userForUpdate(tx, userID)
		if err != nil {
			return err
		}

		links, err := linksOf(tx, userID)
		if err != nil {
			return err
		}

		idx := -1
		for i := range links {
			if links[i].Provider == provider {
				idx = i
				break
			}
		}

		if idx < 0 {
			return apperr.NotFound("provider %q is not linked", provider)
		}

		if len(links) == 1 && !user.HasPassword() {
			return apperr.InvalidOperation("cannot unlink the only remaining authentication method")
		}

		if err := tx.Delete(&models.LinkedProvider{}, "id = ?", links[idx].ID).Error; err != nil {
			return err
		}

		if user.PrimaryProvider != provider {
			return nil
		}

		// deterministic reassignment: earliest-linked survivor wins
		remaining := append(links[:idx:idx], links[idx+1:]...)
		next := ""
		if len(remaining) > 0 {
			next = remaining[0].Provider
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("primary_provider", next).Error
	})
}

// SetPrimary designates one linked provider as primary.
func (s *Service) SetPrimary(ctx context.Context, userID, provider string) error {
	unlock := s.locks.acquire(userID)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.userForUpdate(tx, userID); err != nil {
			return err
		}

		var link models.LinkedProvider

		err := tx.Where("user_id = ? AND provider = ?", userID, provider).First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("provider %q is not linked", provider)
		}

		if err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("primary_provider", provider).Error
	})
}

// ListLinked returns the user's linked providers, earliest first.
func (s *Service) ListLinked(ctx context.Context, userID string) ([]models.LinkedProvider, error) {
	return linksOf(s.db.WithContext(ctx), userID)
}

func linksOf(tx *gorm.DB, userID string) ([]models.LinkedProvider, error) {
	var links []models.LinkedProvider

	if err := tx.Where("user_id = ?", userID).Find(&links).Error; err != nil {
		return nil, err
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].LinkedAt.Equal(links[j].LinkedAt) {
			return links[i].Provider < links[j].Provider
		}

		return links[i].LinkedAt.Before(links[j].LinkedAt)
	})

	return links, nil
}

func (s *Service) userForUpdate(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User

	err := tx.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %q not found", userID)
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// registerFromIdentity creates a user on first OAuth login: verified (the
// provider asserted the email), no password, the default role's permission
// template copied in, and the provider linked as primary.
func (s *Service) registerFromIdentity(ctx context.Context, provider string, identity *oauth.Identity) (*models.User, error) {
	if identity.Email == "" {
		return nil, apperr.OAuth("provider %q asserted no email for a new account", provider)
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))

	template, err := s.registry.Get(ctx, roles.DefaultRoleSlug)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:              uuid.NewString(),
		Email:           email,
		DisplayName:     identity.Name,
		AvatarURL:       identity.AvatarURL,
		Role:            template.Slug,
		Permissions:     append(models.StringList{}, template.Permissions...),
		PrimaryProvider: provider,
		IsVerified:      true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User

		err := tx.Unscoped().Where("email = ?", email).First(&existing).Error
		if err == nil {
			return apperr.Conflict("email %q already belongs to an account; log in and link %s there", email, provider)
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		return tx.Create(&models.LinkedProvider{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Provider:  provider,
			SubjectID: identity.SubjectID,
			Email:     identity.Email,
			Name:      identity.Name,
			AvatarURL: identity.AvatarURL,
			LinkedAt:  s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Service) consumeState(state, provider string, intent oauth.Intent, userID string) (oauth.StatePayload, error) {
	payload, ok := s.states.Consume(state)
	if !ok || payload.Provider != provider || payload.Intent != intent || payload.UserID != userID {
		return oauth.StatePayload{}, apperr.OAuth("state mismatch or expired, restart the authorization")
	}

	return payload, nil
}

func (s *Service) exchange(ctx context.Context, provider, code string) (*oauth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()

	identity, err := s.exchanger.ExchangeCode(ctx, provider, code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Unavailable("provider %q did not answer in time, try again", provider).WithCause(err)
		}

		return nil, err
	}

	return identity, nil
}
