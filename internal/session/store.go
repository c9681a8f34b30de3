// Package session implements the per-device session lifecycle: issue,
// validate, invalidate, bulk-invalidate, and expired-row reclamation.
// Sessions move Created -> Active -> (Invalidated | Expired); both ends are
// terminal.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	ua "github.com/mileusna/useragent"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
)

// Store manages session records.
type Store struct {
	db  *gorm.DB
	ttl time.Duration

	// now and newToken are swappable for tests.
	now      func() time.Time
	newToken func() (string, error)
}

// NewStore creates a session store whose sessions live for ttl.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now, newToken: NewToken}
}

// NewToken generates a new opaque session token, 256 bits of entropy encoded
// as 64 hex characters.
func NewToken() (string, error) {
	b := make([]byte, 32) //nolint:mnd // 32 bytes = 256 bits
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// DescribeDevice parses a User-Agent header into a short human-readable
// descriptor, e.g. "Chrome on macOS".
func DescribeDevice(userAgent string) string {
	parsed := ua.Parse(userAgent)
	if parsed.Name == "" {
		return "Unknown device"
	}

	if parsed.OS == "" {
		return parsed.Name
	}

	return fmt.Sprintf("%s on %s", parsed.Name, parsed.OS)
}

// Issue creates a session for the user. When the same (user, user-agent)
// pair already has a live session, that session is refreshed with a new
// token and expiry instead of growing the table; this is resource hygiene,
// a fresh row would be equally correct.
func (s *Store) Issue(ctx context.Context, userID, userAgent, ip string) (*models.Session, error) {
	now := s.now()

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	var existing models.Session

	err = s.db.WithContext(ctx).
		Where("user_id = ? AND user_agent = ? AND is_valid = ? AND expires_at > ?", userID, userAgent, true, now).
		First(&existing).Error
	if err == nil {
		existing.Token = token
		existing.IP = ip
		existing.LastUsedAt = now
		existing.ExpiresAt = now.Add(s.ttl)

		err = s.db.WithContext(ctx).Save(&existing).Error
		if err != nil && isDuplicateToken(err) {
			if existing.Token, err = s.newToken(); err != nil {
				return nil, err
			}

			err = s.db.WithContext(ctx).Save(&existing).Error
		}

		if err != nil {
			return nil, err
		}

		return &existing, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sess := models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		UserAgent:  userAgent,
		Device:     DescribeDevice(userAgent),
		IP:         ip,
		IsValid:    true,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}

	err = s.db.WithContext(ctx).Create(&sess).Error
	if err != nil && isDuplicateToken(err) {
		// token collision is astronomically unlikely; the unique index is
		// the authority, retry once with a fresh token
		if sess.Token, err = s.newToken(); err != nil {
			return nil, err
		}

		err = s.db.WithContext(ctx).Create(&sess).Error
	}

	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// Validate resolves a token to its session. Missing tokens, invalidated
// sessions and expired sessions all fail with Unauthenticated; the expiry
// check here is authoritative regardless of sweep latency. On success the
// session's LastUsedAt is touched.
func (s *Store) Validate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("no session")
	}

	var sess models.Session

	err := s.db.WithContext(ctx).Where("token = ?", token).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("no such session")
	}

	if err != nil {
		return nil, err
	}

	if !sess.IsValid {
		return nil, apperr.Unauthenticated("session was invalidated")
	}

	if sess.Expired(s.now()) {
		return nil, apperr.Unauthenticated("session expired")
	}

	sess.LastUsedAt = s.now()
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sess.ID).
		Update("last_used_at", sess.LastUsedAt).Error; err != nil {
		return nil, err
	}

	return &sess, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session

	err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("session %q not found", sessionID)
	}

	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// Invalidate marks a session invalid. Idempotent: invalidating a session
// twice, or one that never existed, is not an error.
func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("is_valid", false).Error
}

// InvalidateAllOthers bulk-invalidates every other valid session owned by
// the user, keeping keepSessionID alive. Used for "log out all other
// devices" and mandatory on password change. A session issued concurrently
// may survive; it is the actor's own freshly authenticated session.
func (s *Store) InvalidateAllOthers(ctx context.Context, userID, keepSessionID string) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND id <> ? AND is_valid = ?", userID, keepSessionID, true).
		Update("is_valid", false).Error
}

// InvalidateAll bulk-invalidates every valid session owned by the user.
func (s *Store) InvalidateAll(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND is_valid = ?", userID, true).
		Update("is_valid", false).Error
}

// List returns the user's live sessions, most recently used first.
func (s *Store) List(ctx context.Context, userID string) ([]models.Session, error) {
	var out []models.Session

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_valid = ? AND expires_at > ?", userID, true, s.now()).
		Order("last_used_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Sweep physically removes sessions past their expiry and returns how many
// rows were reclaimed. Cleanup only: Validate never relies on it.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&models.Session{})

	return res.RowsAffected, res.Error
}

func isDuplicateToken(err error) bool {
	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
