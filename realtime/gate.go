// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielhkuo/openfloor/auth"
	"github.com/danielhkuo/openfloor/models"
)

var (
	ErrCredentialRequired = errors.New("authentication credential required")
	ErrCredentialInvalid  = errors.New("invalid or expired credential")
	ErrAccountGone        = errors.New("account no longer exists")
)

// Gate authenticates a channel before any event handler is attached.
// The credential must verify cryptographically AND resolve to a live
// account; a structurally valid token for a deleted account fails.
type Gate struct {
	accounts AccountStore
	secret   string
}

func NewGate(accounts AccountStore, secret string) *Gate {
	return &Gate{accounts: accounts, secret: secret}
}

// Authenticate resolves the bearer credential on an upgrade request.
// The token is taken from the Authorization header, falling back to
// the token query parameter for browser websocket clients that cannot
// set headers.
func (g *Gate) Authenticate(r *http.Request) (models.Identity, error) {
	credential := bearerToken(r)
	if credential == "" {
		return models.Identity{}, ErrCredentialRequired
	}

	userID, err := auth.VerifyToken(credential, g.secret)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}

	identity, err := g.accounts.FindIdentity(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Identity{}, ErrAccountGone
		}
		return models.Identity{}, fmt.Errorf("resolve account: %w", err)
	}

	return identity, nil
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
