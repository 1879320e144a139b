package security

import "testing"

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("expected hash to differ from plaintext")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestNewSessionID_UniqueAndFixedLength(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	if a == b {
		t.Fatalf("expected distinct session ids")
	}
	if len(a) != len(b) {
		t.Fatalf("expected fixed-length session ids, got %d and %d", len(a), len(b))
	}
}
