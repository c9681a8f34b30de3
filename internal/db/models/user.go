package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// User represents a user account. Users authenticate with an email+password
// credential, one or more linked OAuth providers, or both.
//
// Role is an organizational label only: the role's permission template is
// copied into Permissions once at creation time and never consulted again,
// so editing a role later does not change the authority of existing users.
type User struct {
	// ID is the unique identifier for the user (UUID string).
	ID string `gorm:"primaryKey;size:36"`
	// Email is the unique login identifier, stored lowercase.
	Email string `gorm:"uniqueIndex;size:255;not null"`
	// Password is the Argon2id hash; empty for OAuth-only accounts.
	Password string `gorm:"size:255"`
	// DisplayName is the user's chosen display name.
	DisplayName string `gorm:"size:255"`
	// Role is the slug of the role template used at creation time.
	Role string `gorm:"size:100;not null"`
	// Permissions is the user's own permission list, the single source of
	// authorization truth for this user.
	Permissions StringList `gorm:"type:text"`
	// PrimaryProvider is the linked provider that drives profile sync,
	// empty when no provider is linked.
	PrimaryProvider string `gorm:"size:50"`
	// IsVerified reports whether the account's email was activated.
	IsVerified bool
	// AvatarURL is the profile picture URL from the last provider sync.
	AvatarURL string `gorm:"size:500"`

	// ActivationCode is the pending email-activation code, cleared on use.
	ActivationCode string `gorm:"size:64"`
	// ActivationSentAt is when the activation code was issued.
	ActivationSentAt *time.Time
	// ResetCode is the pending password-reset code, cleared on use.
	ResetCode string `gorm:"size:64"`
	// ResetRequestedAt is when the reset code was issued.
	ResetRequestedAt *time.Time

	// TOTPSecret is the base32 TOTP secret, set during MFA enrollment.
	TOTPSecret string `gorm:"size:64"`
	// TOTPEnabled reports whether a TOTP code is required at login.
	TOTPEnabled bool

	// ProfileSyncedAt is when the profile was last synced from a provider.
	ProfileSyncedAt *time.Time
	// LastSyncedProvider is the provider the profile was last synced from.
	LastSyncedProvider string `gorm:"size:50"`

	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
	// DeletedAt soft-deletes the account. Soft-deleted users never pass
	// authentication but the row stays while sessions reference it.
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// HasPassword reports whether the account carries a password credential.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// HashPassword hashes a plaintext password using the Argon2id algorithm with
// the default parameters.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the stored hash in
// constant time. An account without a password never verifies.
func (u *User) VerifyPassword(password string) bool {
	if !u.HasPassword() {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
