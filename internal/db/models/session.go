package models

import "time"

// Session binds an opaque token to a user and device. Sessions are
// time-boxed: rows past ExpiresAt are swept out rather than soft-deleted,
// and the expiry check in validation is authoritative regardless of sweep
// latency.
type Session struct {
	// ID is the unique identifier for the session (UUID string).
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the owning user.
	UserID string `gorm:"index;size:36;not null"`
	// Token is the opaque 256-bit random token carried by the cookie.
	// Uniqueness is enforced by the index, not by an in-process check,
	// since issuances can race across processes.
	Token string `gorm:"uniqueIndex;size:64;not null"`
	// UserAgent is the raw User-Agent header seen at issuance.
	UserAgent string `gorm:"size:500"`
	// Device is the parsed human-readable descriptor, e.g. "Chrome on macOS".
	Device string `gorm:"size:100"`
	// IP is the client address seen at issuance.
	IP string `gorm:"size:45"`
	// IsValid is cleared on logout or password change. An invalid session
	// never authenticates, even if the token matches.
	IsValid bool
	// LastUsedAt is touched on every validated use.
	LastUsedAt time.Time
	// ExpiresAt is the hard expiry; reaching it terminates the session.
	ExpiresAt time.Time `gorm:"index"`
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
}

// TableName specifies the database table name for the Session model.
func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
