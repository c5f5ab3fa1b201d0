package resumes

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundtrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue("resume-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "resume-1" {
		t.Fatalf("subject = %s", subject)
	}
}

func TestTokenExpiry(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue("resume-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expired token error = %v, want ErrAccessDenied", err)
	}
}

func TestTokenRequiresExpiry(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	// A token minted without exp must be rejected even with a valid
	// signature.
	claims := accessClaims{
		Kind: tokenKind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "resume-1",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("no-expiry token error = %v, want ErrAccessDenied", err)
	}
}

func TestTokenWrongKindRejected(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	claims := accessClaims{
		Kind: "session_access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "resume-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("wrong-kind token error = %v, want ErrAccessDenied", err)
	}
}

func TestTokenTamperRejected(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	other, err := NewTokenIssuer("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := other.Issue("resume-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("foreign-secret token error = %v, want ErrAccessDenied", err)
	}
}

func TestNewTokenIssuerRejectsZeroTTL(t *testing.T) {
	if _, err := NewTokenIssuer("test-secret", 0); err == nil {
		t.Fatalf("zero ttl accepted")
	}
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatalf("empty secret accepted")
	}
}
