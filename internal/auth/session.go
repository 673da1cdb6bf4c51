/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/hkdf"
)

// CookieName is the admin session cookie.
const CookieName = "admin_auth"

// Options configures an Authenticator.
type Options struct {
	SigningKey   string // explicit HS256 key; derived from the password when empty
	Password     string
	PasswordHash string // bcrypt; takes precedence over Password
	TTL          time.Duration
	SecureCookie bool
	Now          func() time.Time
}

// Authenticator checks the admin password and issues session cookies.
type Authenticator struct {
	secret       []byte
	password     []byte
	passwordHash []byte
	ttl          time.Duration
	secure       bool
	now          func() time.Time
}

// NewAuthenticator validates opts and derives the session signing key.
func NewAuthenticator(opts Options) (*Authenticator, error) {
	if opts.Password == "" && opts.PasswordHash == "" {
		return nil, errors.New("admin password not configured")
	}
	if opts.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	secret := []byte(opts.SigningKey)
	if len(secret) == 0 {
		material := opts.PasswordHash
		if material == "" {
			material = opts.Password
		}
		derived, err := DeriveSigningKey(material)
		if err != nil {
			return nil, err
		}
		secret = derived
	}

	return &Authenticator{
		secret:       secret,
		password:     []byte(opts.Password),
		passwordHash: []byte(opts.PasswordHash),
		ttl:          opts.TTL,
		secure:       opts.SecureCookie,
		now:          opts.Now,
	}, nil
}

// DeriveSigningKey derives a 32 byte HS256 key from the admin password
// material with HKDF-SHA256. Changing the password invalidates all sessions.
func DeriveSigningKey(material string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(material), []byte("classboard-session"), []byte("admin-session-v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// HashPassword returns a bcrypt hash suitable for CLASSBOARD_ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares candidate with the configured password.
func (a *Authenticator) CheckPassword(candidate string) bool {
	if len(a.passwordHash) > 0 {
		return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(a.password, []byte(candidate)) == 1
}

// IssueSession creates a signed admin token and its expiry.
func (a *Authenticator) IssueSession() (string, time.Time, error) {
	now := a.now()
	token, err := Issue(a.secret, Claims{Admin: true}, now, a.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(a.ttl), nil
}

// Verify parses token and requires the admin claim.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims, err := Parse(a.secret, token, a.now())
	if err != nil {
		return nil, err
	}
	if !claims.Admin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// Authenticated reports whether r carries a valid admin session cookie.
func (a *Authenticator) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	_, err = a.Verify(cookie.Value)
	return err == nil
}

// SetSessionCookie writes the admin session cookie.
func (a *Authenticator) SetSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	})
}

// ClearSessionCookie removes the admin session cookie.
func (a *Authenticator) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	})
}
