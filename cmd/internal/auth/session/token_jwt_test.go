package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testTokenConfig() Config {
	cfg := DefaultConfig()
	cfg.SecretKey = testSecretKey
	return cfg
}

func TestHS256_IssueAndVerify(t *testing.T) {
	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := mgr.Issue("01HZZZZZZZZZZZZZZZZZZZZZZZ", true, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := mgr.Verify(tok, now.Add(1*time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Fatalf("user id = %q", claims.UserID)
	}
	if !claims.IsAdmin {
		t.Fatalf("expected admin claim to round-trip")
	}
	if claims.Issuer != "reelist" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestHS256_Expired(t *testing.T) {
	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := mgr.Issue("user-1", false, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Past TTL plus leeway.
	late := now.Add(16*time.Minute + time.Minute)
	if _, err := mgr.Verify(tok, late); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestHS256_ClockSkewLeeway(t *testing.T) {
	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := mgr.Issue("user-1", false, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Just past exp but inside the 30s leeway.
	if _, err := mgr.Verify(tok, exp.Add(10*time.Second)); err != nil {
		t.Fatalf("expected verify inside leeway to pass, got %v", err)
	}
}

func TestHS256_WrongKey(t *testing.T) {
	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	other := testTokenConfig()
	other.SecretKey = strings.Repeat("x", 32)
	mgr2, err := NewHS256Manager(other)
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := mgr.Issue("user-1", false, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr2.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestHS256_Tampered(t *testing.T) {
	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := mgr.Issue("user-1", false, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := mgr.Verify(tampered, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}

	if _, err := mgr.Verify("not-a-token", now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestHS256_WrongIssuer(t *testing.T) {
	other := testTokenConfig()
	other.Issuer = "someone-else"
	mgr2, err := NewHS256Manager(other)
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	mgr, err := NewHS256Manager(testTokenConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := mgr2.Issue("user-1", false, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}
