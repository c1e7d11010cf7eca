package credential

import (
	"testing"
	"time"
)

func TestRegisterLoginVerify(t *testing.T) {
	s := NewStore(time.Minute)
	if _, err := s.Register("alice", "hunter2"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, err := s.Login("alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	acc, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if acc.Username != "alice" {
		t.Errorf("Username = %q, want alice", acc.Username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := NewStore(time.Minute)
	s.Register("bob", "correct")
	if _, err := s.Login("bob", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Login with wrong password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestNewLoginEvictsPriorToken(t *testing.T) {
	s := NewStore(time.Minute)
	s.Register("carol", "pw")
	first, _ := s.Login("carol", "pw")
	second, _ := s.Login("carol", "pw")

	if _, err := s.VerifyToken(first); err != ErrTokenInvalid {
		t.Errorf("first token should be invalidated by second login, err = %v", err)
	}
	if _, err := s.VerifyToken(second); err != nil {
		t.Errorf("second token should verify: %v", err)
	}
}

func TestClearSessionInvalidatesToken(t *testing.T) {
	s := NewStore(time.Minute)
	s.Register("dave", "pw")
	token, _ := s.Login("dave", "pw")
	id, _ := s.AccountByName("dave")

	s.ClearSession(id)

	if _, err := s.VerifyToken(token); err != ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid after ClearSession, got %v", err)
	}
}

func TestVerifyTokenExpiry(t *testing.T) {
	s := NewStore(-time.Minute) // already expired on mint
	s.Register("erin", "pw")
	token, _ := s.Login("erin", "pw")

	if _, err := s.VerifyToken(token); err != ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}
