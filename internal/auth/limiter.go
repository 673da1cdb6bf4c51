/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"sync"
	"time"
)

// LoginLimiter locks a client out after too many failed logins.
type LoginLimiter struct {
	maxFailures int
	lockout     time.Duration
	now         func() time.Time

	mu      sync.Mutex
	clients map[string]*loginAttempts
}

type loginAttempts struct {
	failures    int
	first       time.Time
	lockedUntil time.Time
}

// NewLoginLimiter allows maxFailures failed attempts within lockout before
// rejecting the client for lockout.
func NewLoginLimiter(maxFailures int, lockout time.Duration) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &LoginLimiter{
		maxFailures: maxFailures,
		lockout:     lockout,
		now:         time.Now,
		clients:     make(map[string]*loginAttempts),
	}
}

// Allow reports whether key may attempt a login. When locked out it also
// returns the time left until the lockout ends.
func (l *LoginLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.clients[key]
	if !ok {
		return true, 0
	}
	now := l.now()
	if now.Before(a.lockedUntil) {
		return false, a.lockedUntil.Sub(now)
	}
	return true, 0
}

// Fail records a failed attempt and reports whether key is now locked out.
func (l *LoginLimiter) Fail(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[key]
	if !ok || now.Sub(a.first) >= l.lockout {
		a = &loginAttempts{first: now}
		l.clients[key] = a
	}
	a.failures++
	if a.failures >= l.maxFailures {
		a.lockedUntil = now.Add(l.lockout)
		return true
	}
	return false
}

// Reset forgets key after a successful login.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.clients, key)
	l.mu.Unlock()
}

// Sweep drops entries whose window and lockout have passed.
func (l *LoginLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, a := range l.clients {
		if now.Sub(a.first) >= l.lockout && !now.Before(a.lockedUntil) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}
