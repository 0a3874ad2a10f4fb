// Package auth tracks which users hold standing admin status and checks
// the shared admin password.
package auth

import (
	"sync"
	"time"
)

// GrantLifetime is how long an admin grant lasts. Zero means the grant
// holds for the remaining process lifetime; the set is never persisted
// and there is no revocation.
const GrantLifetime time.Duration = 0

// Admins is the in-memory set of users with standing admin status.
type Admins struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewAdmins returns an empty admin set.
func NewAdmins() *Admins {
	return &Admins{ids: make(map[int64]struct{})}
}

// Grant adds a user to the set.
func (a *Admins) Grant(userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids[userID] = struct{}{}
}

// Has reports whether a user holds admin status.
func (a *Admins) Has(userID int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[userID]
	return ok
}

// CheckPassword compares a presented password against the configured one.
// An empty presented password never matches.
func CheckPassword(got, want string) bool {
	return got != "" && got == want
}
