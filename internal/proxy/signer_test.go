package proxy

import (
	"testing"
	"time"
)

func TestSigner_roundTrip(t *testing.T) {
	s := NewSigner("test-secret", 100, 50*time.Millisecond)

	token := s.Mint("https://cdn.example/a/seg-0.ts", "https://player.example/watch")
	handle, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if handle.OriginURL != "https://cdn.example/a/seg-0.ts" {
		t.Errorf("OriginURL = %q", handle.OriginURL)
	}
	if handle.Referer != "https://player.example/watch" {
		t.Errorf("Referer = %q", handle.Referer)
	}
}

func TestSigner_expiredTokenRejected(t *testing.T) {
	s := NewSigner("test-secret", 100, 20*time.Millisecond)
	token := s.Mint("https://cdn.example/a/seg-0.ts", "")

	time.Sleep(40 * time.Millisecond)

	if _, err := s.Verify(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSigner_tamperedTokenRejected(t *testing.T) {
	s := NewSigner("test-secret", 100, time.Minute)
	token := s.Mint("https://cdn.example/a/seg-0.ts", "")

	tampered := token[:len(token)-1] + "0"
	if _, err := s.Verify(tampered); err == nil {
		t.Error("expected tampered token to be rejected")
	}
}

func TestSigner_wrongSecretRejected(t *testing.T) {
	s1 := NewSigner("secret-one", 100, time.Minute)
	s2 := NewSigner("secret-two", 100, time.Minute)

	token := s1.Mint("https://cdn.example/a/seg-0.ts", "")
	if _, err := s2.Verify(token); err == nil {
		t.Error("expected token minted by a different secret to be rejected")
	}
}

func TestSigner_malformedTokenRejected(t *testing.T) {
	s := NewSigner("test-secret", 100, time.Minute)
	if _, err := s.Verify("not-a-real-token"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}
