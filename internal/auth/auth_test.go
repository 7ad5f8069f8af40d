package auth

import (
	"context"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Fatal("correct password should verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password should not verify")
	}
}

func TestUserContext(t *testing.T) {
	ctx := WithUser(context.Background(), 42)
	id, err := UserID(ctx)
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (err=%v)", id, err)
	}
	if _, err := UserID(context.Background()); err == nil {
		t.Fatal("bare context should not carry a user")
	}
}

func TestSessions(t *testing.T) {
	s := NewSessions(time.Minute)
	defer s.Close()

	token, err := s.Start(7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64-char token, got %d", len(token))
	}

	if id, ok := s.Lookup(token); !ok || id != 7 {
		t.Fatalf("expected 7, got %d ok=%v", id, ok)
	}
	if _, ok := s.Lookup("unknown"); ok {
		t.Fatal("unknown token should miss")
	}

	s.Destroy(token)
	if _, ok := s.Lookup(token); ok {
		t.Fatal("destroyed session should miss")
	}
}

func TestSessionsExpiry(t *testing.T) {
	s := NewSessions(10 * time.Millisecond)
	defer s.Close()

	token, err := s.Start(7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := s.Lookup(token); ok {
		t.Fatal("expired session should miss")
	}
}

func TestSessionsDistinctTokens(t *testing.T) {
	s := NewSessions(time.Minute)
	defer s.Close()

	a, _ := s.Start(1)
	b, _ := s.Start(1)
	if a == b {
		t.Fatal("two sessions must not share a token")
	}
}
