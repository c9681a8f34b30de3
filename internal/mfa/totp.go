// Package mfa implements an optional TOTP second factor. Enrollment stores
// a secret, confirmation with a valid code arms it, and from then on login
// requires a current code.
package mfa

import (
	"context"
	"errors"

	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
)

// Manager handles TOTP enrollment and verification.
type Manager struct {
	db     *gorm.DB
	issuer string
}

// NewManager creates an MFA manager. The issuer is the name authenticator
// apps display next to the account.
func NewManager(db *gorm.DB, issuer string) *Manager {
	return &Manager{db: db, issuer: issuer}
}

// Enrollment is the result of starting TOTP enrollment.
type Enrollment struct {
	// Secret is the base32 secret for manual entry.
	Secret string `json:"secret"`
	// URL is the otpauth:// provisioning URL for QR rendering.
	URL string `json:"url"`
}

// Enroll generates and stores a fresh TOTP secret for the user. The factor
// stays disarmed until Confirm succeeds, so a lost enrollment never locks
// anyone out.
func (m *Manager) Enroll(ctx context.Context, userID string) (*Enrollment, error) {
	user, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TOTPEnabled {
		return nil, apperr.InvalidOperation("totp is already enabled, disable it before re-enrolling")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, err
	}

	err = m.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("totp_secret", key.Secret()).Error
	if err != nil {
		return nil, err
	}

	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Confirm arms the enrolled secret after verifying one valid code.
func (m *Manager) Confirm(ctx context.Context, userID, code string) error {
	user, err := m.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.TOTPSecret == "" {
		return apperr.InvalidOperation("no pending totp enrollment")
	}

	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Validation("totp code does not verify")
	}

	return m.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("totp_enabled", true).Error
}

// Disable turns the second factor off after verifying a current code.
func (m *Manager) Disable(ctx context.Context, userID, code string) error {
	user, err := m.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.TOTPEnabled {
		return apperr.InvalidOperation("totp is not enabled")
	}

	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Validation("totp code does not verify")
	}

	return m.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_enabled": false, "totp_secret": ""}).Error
}

// Check verifies the login code for a user. A user without TOTP enabled
// passes with any code; a user with it enabled fails Unauthenticated on a
// missing or wrong code, indistinguishable from a bad password.
func Check(user *models.User, code string) error {
	if !user.TOTPEnabled {
		return nil
	}

	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Unauthenticated("invalid credentials")
	}

	return nil
}

func (m *Manager) loadUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User

	err := m.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %q not found", userID)
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}
