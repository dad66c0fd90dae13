// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id, err := GenerateID(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(id))
	}

	id2, _ := GenerateID(16)
	if id == id2 {
		t.Error("two generated IDs should not collide")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token := GenerateToken("user-42", "secret", time.Hour)

	userID, err := VerifyToken(token, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("expected user-42, got %q", userID)
	}
}

func TestVerifyTokenFailures(t *testing.T) {
	valid := GenerateToken("user-42", "secret", time.Hour)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{
			name:    "wrong secret",
			token:   valid,
			secret:  "other",
			wantErr: ErrBadSignature,
		},
		{
			name:    "garbage token",
			token:   "not-a-token",
			secret:  "secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "tampered payload",
			token:   "QQ" + valid,
			secret:  "secret",
			wantErr: ErrBadSignature,
		},
		{
			name:    "expired",
			token:   GenerateToken("user-42", "secret", -time.Minute),
			secret:  "secret",
			wantErr: ErrTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.token, tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenIsURLSafe(t *testing.T) {
	token := GenerateToken("user/with+odd=chars", "secret", time.Hour)
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token contains non-URL-safe characters: %q", token)
	}
}
