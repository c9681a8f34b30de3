// Package auth implements the authenticator: it turns inbound credentials
// or session tokens into an authenticated actor, and owns registration,
// activation, password reset and per-user permission mutation.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/mfa"
	"github.com/GoAuthCore/GoAuthCore/internal/notify"
	"github.com/GoAuthCore/GoAuthCore/internal/randstr"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
	"github.com/GoAuthCore/GoAuthCore/internal/session"
)

// Device carries the request metadata bound to an issued session.
type Device struct {
	UserAgent string
	IP        string
}

// Service composes the session store and the role registry into the
// authentication surface.
type Service struct {
	db       *gorm.DB
	sessions *session.Store
	registry *roles.Registry
	notifier notify.Sender

	activationTTL  time.Duration
	resetTTL       time.Duration
	minPasswordLen int

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates the authenticator.
func NewService(
	db *gorm.DB,
	sessions *session.Store,
	registry *roles.Registry,
	notifier notify.Sender,
	cfg config.Auth,
) *Service {
	return &Service{
		db:             db,
		sessions:       sessions,
		registry:       registry,
		notifier:       notifier,
		activationTTL:  cfg.ActivationCodeTTL.Std(),
		resetTTL:       cfg.ResetCodeTTL.Std(),
		minPasswordLen: cfg.MinPasswordLength,
		now:            time.Now,
	}
}

// Sessions exposes the underlying session store to the web layer.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// NormalizeEmail lowercases and trims an email address; emails compare
// case-insensitively everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account with the default role's permission
// template copied in, and dispatches the activation code. The copy is one
// time only: later edits to the role never touch this user.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = NormalizeEmail(email)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("%q is not a valid email address", email)
	}

	if len(password) < s.minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", s.minPasswordLen)
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Unscoped().Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("email %q is already registered", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	template, err := s.registry.Get(ctx, roles.DefaultRoleSlug)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := models.User{
		ID:               uuid.NewString(),
		Email:            email,
		Password:         models.HashPassword(password),
		DisplayName:      displayName,
		Role:             template.Slug,
		Permissions:      append(models.StringList{}, template.Permissions...),
		ActivationCode:   randstr.NewCode(),
		ActivationSentAt: &now,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Conflict("email %q is already registered", email).WithCause(err)
	}

	// fire-and-forget: a failed send never rolls back the registration
	s.notifier.Send(notify.TemplateActivation, user.Email, map[string]any{
		"code": user.ActivationCode,
		"name": user.DisplayName,
	})

	return &user, nil
}

// Activate verifies the emailed activation code, marks the account verified
// and issues the first session.
func (s *Service) Activate(ctx context.Context, email, code string, device Device) (*models.User, *models.Session, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	if user.IsVerified {
		return nil, nil, apperr.InvalidOperation("account is already activated")
	}

	if user.ActivationCode == "" || code != user.ActivationCode {
		return nil, nil, apperr.Validation("activation code does not match")
	}

	if user.ActivationSentAt == nil || s.now().After(user.ActivationSentAt.Add(s.activationTTL)) {
		return nil, nil, apperr.Validation("activation code has expired, request a new one")
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"is_verified": true, "activation_code": ""}).Error
	if err != nil {
		return nil, nil, err
	}

	user.IsVerified = true

	sess, err := s.sessions.Issue(ctx, user.ID, device.UserAgent, device.IP)
	if err != nil {
		return nil, nil, err
	}

	return user, sess, nil
}

// Login verifies an email+password credential (and the TOTP code when the
// account requires one) and issues a session. Unknown emails, wrong
// passwords, soft-deleted and unverified accounts all fail with the same
// Unauthenticated error so callers cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, email, password, totpCode string, device Device) (*models.User, *models.Session, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperr.Unauthenticated("invalid credentials")
	}

	if !user.VerifyPassword(password) {
		return nil, nil, apperr.Unauthenticated("invalid credentials")
	}

	if !user.IsVerified {
		return nil, nil, apperr.Unauthenticated("invalid credentials")
	}

	if err := mfa.Check(user, totpCode); err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Issue(ctx, user.ID, device.UserAgent, device.IP)
	if err != nil {
		return nil, nil, err
	}

	return user, sess, nil
}

// RequestPasswordReset issues a reset code for the account. The outcome is
// identical for unknown emails so the endpoint cannot be used to enumerate
// accounts; the code only ever leaves through the notifier.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.CodeUnauthenticated) {
			log.Debug().Str("email", NormalizeEmail(email)).Msg("reset requested for unknown account")
			return nil
		}

		return err
	}

	now := s.now()
	code := randstr.NewCode()

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"reset_code": code, "reset_requested_at": now}).Error
	if err != nil {
		return err
	}

	s.notifier.Send(notify.TemplatePasswordReset, user.Email, map[string]any{
		"code": code,
		"name": user.DisplayName,
	})

	return nil
}

// ResetPassword redeems a reset code for a new password and revokes every
// session the account holds.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < s.minPasswordLen {
		return apperr.Validation("password must be at least %d characters", s.minPasswordLen)
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.ResetCode == "" || code != user.ResetCode {
		return apperr.Validation("reset code does not match")
	}

	if user.ResetRequestedAt == nil || s.now().After(user.ResetRequestedAt.Add(s.resetTTL)) {
		return apperr.Validation("reset code has expired, request a new one")
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"password":   models.HashPassword(newPassword),
			"reset_code": "",
		}).Error
	if err != nil {
		return err
	}

	return s.sessions.InvalidateAll(ctx, user.ID)
}

// ChangePassword verifies the old password, stores the new hash, and
// invalidates every other session. Keeping the acting session alive is the
// point: the actor just proved they hold the new credential.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, keepSessionID string) error {
	if len(newPassword) < s.minPasswordLen {
		return apperr.Validation("password must be at least %d characters", s.minPasswordLen)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.VerifyPassword(oldPassword) {
		return apperr.Unauthenticated("invalid credentials")
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", models.HashPassword(newPassword)).Error
	if err != nil {
		return err
	}

	return s.sessions.InvalidateAllOthers(ctx, userID, keepSessionID)
}

// SoftDelete marks the account deleted and revokes all its sessions. The
// row stays while sessions and permission history reference it.
func (s *Service) SoftDelete(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sessions.InvalidateAll(ctx, user.ID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", user.ID).Error
}

// GetUser retrieves a non-deleted user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %q not found", userID)
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// userByEmail retrieves a non-deleted user by normalized email. The caller
// decides whether a miss is NotFound or a deliberately vague outcome.
func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("unknown account")
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}
