package security

import (
	"errors"
	"testing"
	"time"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := IssueSessionToken("secret", time.Hour, "sess-1", 42, "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := ParseSessionToken("secret", token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("expected session id sess-1, got %q", claims.SessionID)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected username alice, got %q", claims.Username)
	}
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, err := IssueSessionToken("secret", time.Hour, "sess-1", 42, "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := ParseSessionToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := IssueSessionToken("secret", -time.Minute, "sess-1", 42, "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := ParseSessionToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestSessionToken_Malformed(t *testing.T) {
	if _, err := ParseSessionToken("secret", "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestSessionToken_EmptySecretRejected(t *testing.T) {
	if _, err := IssueSessionToken("", time.Hour, "sess-1", 42, "alice"); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
