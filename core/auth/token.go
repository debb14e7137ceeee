package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of a bearer token. The token only names the user;
// the role is always resolved from the store afterwards, so role changes do
// not require re-issuing tokens.
type Claims struct {
	UserID string `json:"uid"`
	Exp    int64  `json:"exp"`
}

// SignToken produces a payload.signature bearer token, HMAC-SHA256 over the
// base64url payload.
func SignToken(secret, userID string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("empty auth secret")
	}
	claims := Claims{UserID: userID, Exp: now.UTC().Add(ttl).Unix()}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	sig := base64.RawURLEncoding.EncodeToString(hmacSHA256([]byte(secret), []byte(payload)))
	return payload + "." + sig, nil
}

// VerifyToken checks signature and expiry and returns the claims.
func VerifyToken(secret, token string, now time.Time) (*Claims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrTokenInvalid
	}
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 2 {
		return nil, ErrTokenInvalid
	}
	payloadPart := strings.TrimSpace(parts[0])
	gotSig, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, ErrTokenInvalid
	}
	wantSig := hmacSHA256([]byte(secret), []byte(payloadPart))
	if subtle.ConstantTimeCompare(gotSig, wantSig) != 1 {
		return nil, ErrTokenInvalid
	}
	rawPayload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var claims Claims
	if err := json.Unmarshal(rawPayload, &claims); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.Exp <= 0 {
		return nil, ErrTokenInvalid
	}
	if now.UTC().Unix() >= claims.Exp {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func hmacSHA256(secret, payload []byte) []byte {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write(payload)
	return m.Sum(nil)
}
