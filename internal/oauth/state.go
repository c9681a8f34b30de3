package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// Intent records why an authorization round trip was started, so the
// callback knows what to do with the exchanged identity.
type Intent string

const (
	// IntentLogin authenticates (or registers) by provider identity.
	IntentLogin Intent = "login"
	// IntentLink attaches the provider identity to an existing account.
	IntentLink Intent = "link"
	// IntentSync refreshes the profile from the primary provider.
	IntentSync Intent = "sync"
)

// StatePayload is what a state token resolves back to at callback time.
type StatePayload struct {
	Provider string
	Intent   Intent
	// UserID is the acting user for link and sync intents, empty for login.
	UserID string
}

type stateEntry struct {
	payload   StatePayload
	expiresAt time.Time
}

// StateStore issues single-use, time-boxed CSRF state tokens for the
// authorization round trip. The transport between the provider window and
// the callback does not matter here; the contract is "present the state
// once, before it expires".
type StateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stateEntry

	// now is swappable for tests.
	now func() time.Time
}

// NewStateStore creates a state store whose tokens live for ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		ttl:     ttl,
		entries: make(map[string]stateEntry),
		now:     time.Now,
	}
}

// Issue creates a fresh state token bound to the payload.
func (s *StateStore) Issue(payload StatePayload) (string, error) {
	b := make([]byte, 32) //nolint:mnd // 256-bit state
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	state := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	// drop anything already expired while we hold the lock
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}

	s.entries[state] = stateEntry{payload: payload, expiresAt: now.Add(s.ttl)}

	return state, nil
}

// Consume resolves and burns a state token. A token is consumed exactly
// once; unknown, reused and expired tokens all report false.
func (s *StateStore) Consume(state string) (StatePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return StatePayload{}, false
	}

	delete(s.entries, state)

	if s.now().After(entry.expiresAt) {
		return StatePayload{}, false
	}

	return entry.payload, true
}
