package handler

import (
	"time"

	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
)

// UserView is the public JSON shape of a user. Credentials, pending codes
// and MFA secrets never leave the server.
type UserView struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name,omitempty"`
	Role               string     `json:"role"`
	Permissions        []string   `json:"permissions"`
	PrimaryProvider    string     `json:"primary_provider,omitempty"`
	IsVerified         bool       `json:"is_verified"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	TOTPEnabled        bool       `json:"totp_enabled"`
	ProfileSyncedAt    *time.Time `json:"profile_synced_at,omitempty"`
	LastSyncedProvider string     `json:"last_synced_provider,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewUserView maps a user row to its public shape.
func NewUserView(u *models.User) UserView {
	return UserView{
		ID:                 u.ID,
		Email:              u.Email,
		DisplayName:        u.DisplayName,
		Role:               u.Role,
		Permissions:        append([]string{}, u.Permissions...),
		PrimaryProvider:    u.PrimaryProvider,
		IsVerified:         u.IsVerified,
		AvatarURL:          u.AvatarURL,
		TOTPEnabled:        u.TOTPEnabled,
		ProfileSyncedAt:    u.ProfileSyncedAt,
		LastSyncedProvider: u.LastSyncedProvider,
		CreatedAt:          u.CreatedAt,
	}
}

// SessionView is the public JSON shape of a session. The token is absent:
// it is only ever transported in the cookie of the issuing response.
type SessionView struct {
	ID         string    `json:"id"`
	Device     string    `json:"device,omitempty"`
	IP         string    `json:"ip,omitempty"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	Current    bool      `json:"current"`
}

// NewSessionView maps a session row to its public shape. currentID marks
// the session serving the request.
func NewSessionView(s *models.Session, currentID string) SessionView {
	return SessionView{
		ID:         s.ID,
		Device:     s.Device,
		IP:         s.IP,
		LastUsedAt: s.LastUsedAt,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		Current:    s.ID == currentID,
	}
}

// RoleView is the public JSON shape of a role template.
type RoleView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"is_system"`
	IsProtected bool      `json:"is_protected"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRoleView maps a role row to its public shape.
func NewRoleView(r *models.Role) RoleView {
	return RoleView{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Permissions: append([]string{}, r.Permissions...),
		IsSystem:    r.IsSystem,
		IsProtected: r.IsProtected,
		CreatedAt:   r.CreatedAt,
	}
}

// LinkView is the public JSON shape of a linked provider.
type LinkView struct {
	Provider  string    `json:"provider"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	LinkedAt  time.Time `json:"linked_at"`
	Primary   bool      `json:"primary"`
}

// NewLinkView maps a linked provider to its public shape. primaryProvider
// is the owning user's current primary.
func NewLinkView(l *models.LinkedProvider, primaryProvider string) LinkView {
	return LinkView{
		Provider:  l.Provider,
		Email:     l.Email,
		Name:      l.Name,
		AvatarURL: l.AvatarURL,
		LinkedAt:  l.LinkedAt,
		Primary:   l.Provider == primaryProvider,
	}
}
