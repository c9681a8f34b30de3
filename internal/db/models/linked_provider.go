package models

import "time"

// LinkedProvider associates a user with one external OAuth identity. A
// provider subject may belong to at most one user, and a user links a given
// provider at most once.
type LinkedProvider struct {
	// ID is the unique identifier for the association (UUID string).
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the owning user.
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_user_provider"`
	// Provider is the provider identifier, e.g. "google" or "github".
	Provider string `gorm:"size:50;not null;uniqueIndex:idx_user_provider;uniqueIndex:idx_provider_subject"`
	// SubjectID is the provider's stable subject identifier for this user.
	SubjectID string `gorm:"size:255;not null;uniqueIndex:idx_provider_subject"`
	// Email is the address reported by the provider at link time.
	Email string `gorm:"size:255"`
	// Name is the display name reported by the provider at link time.
	Name string `gorm:"size:255"`
	// AvatarURL is the profile picture reported by the provider.
	AvatarURL string `gorm:"size:500"`
	// LinkedAt orders links for deterministic primary reassignment.
	LinkedAt time.Time `gorm:"not null"`
}

// TableName specifies the database table name for the LinkedProvider model.
func (LinkedProvider) TableName() string {
	return "linked_providers"
}
