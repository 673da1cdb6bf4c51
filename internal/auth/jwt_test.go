package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	token, err := Issue(secret, Claims{Admin: true}, now, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(secret, token, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.Admin {
		t.Fatal("expected admin claim")
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestParseExpired(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	token, _ := Issue(secret, Claims{Admin: true}, now, time.Hour)
	if _, err := Parse(secret, token, now.Add(2*time.Hour)); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	now := time.Now()
	token, _ := Issue([]byte("a"), Claims{Admin: true}, now, time.Hour)
	if _, err := Parse([]byte("b"), token, now); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	secret := []byte("test-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Admin: true}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse(secret, token, time.Now()); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}
