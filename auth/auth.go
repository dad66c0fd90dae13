// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrBadSignature = errors.New("token signature mismatch")
	ErrTokenExpired = errors.New("token expired")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken mints a bearer credential for a user session.
// Format: base64url(userID).expiryUnix.base64url(hmac-sha256).
// Deterministic given the same inputs, so no token storage is needed;
// verification recomputes the signature.
func GenerateToken(userID, secret string, ttl time.Duration) string {
	expiry := time.Now().Add(ttl).Unix()
	payload := encodeSegment(userID) + "." + strconv.FormatInt(expiry, 10)
	return payload + "." + sign(payload, secret)
}

// VerifyToken checks the credential signature and expiry and returns
// the user ID it was minted for. It does NOT check that the account
// still exists; callers must resolve the ID against the account store.
func VerifyToken(token, secret string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}

	payload := parts[0] + "." + parts[1]
	expected := sign(payload, secret)
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return "", ErrBadSignature
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().Unix() > expiry {
		return "", ErrTokenExpired
	}

	userID, err := decodeSegment(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func sign(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return strings.TrimRight(base64.URLEncoding.EncodeToString(h.Sum(nil)), "=")
}

func encodeSegment(s string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(s)), "=")
}

func decodeSegment(s string) (string, error) {
	if padding := len(s) % 4; padding != 0 {
		s += strings.Repeat("=", 4-padding)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
