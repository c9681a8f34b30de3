package linking

import "sync"

// userLocks serializes linking mutations per user. Two concurrent unlinks
// must not both pass the "not the last auth method" check, so this is the
// one place in the core that takes an explicit lock.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the given user's mutex and returns the unlock func.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}
