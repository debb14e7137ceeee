package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-0123456789"

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := SignToken(testSecret, "user-42", time.Hour, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyToken(testSecret, token, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("uid = %q", claims.UserID)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	token, err := SignToken(testSecret, "user-42", time.Minute, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyToken(testSecret, token, now.Add(2*time.Minute)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestTokenTampered(t *testing.T) {
	now := time.Now()
	token, err := SignToken(testSecret, "user-42", time.Hour, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(token, ".")
	forged := parts[0] + "x." + parts[1]
	if _, err := VerifyToken(testSecret, forged, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered payload err = %v, want ErrTokenInvalid", err)
	}
	if _, err := VerifyToken("other-secret", token, now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("wrong secret err = %v, want ErrTokenInvalid", err)
	}
	if _, err := VerifyToken(testSecret, "garbage", now); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("malformed err = %v, want ErrTokenInvalid", err)
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, err := SignToken("", "user-42", time.Hour, time.Now()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
