// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/danielhkuo/openfloor/auth"
	"github.com/danielhkuo/openfloor/models"
)

var errUnauthorized = errors.New("unauthorized")

// requireIdentity resolves the bearer token on a REST request to a
// live account. The same token gates the websocket upgrade, so a
// client authenticates once for both surfaces.
func requireIdentity(db *sql.DB, secret string, r *http.Request) (models.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return models.Identity{}, errUnauthorized
	}

	userID, err := auth.VerifyToken(strings.TrimSpace(token), secret)
	if err != nil {
		return models.Identity{}, errUnauthorized
	}

	var identity models.Identity
	err = db.QueryRowContext(r.Context(), `
		SELECT id, username, role FROM account WHERE id = $1
	`, userID).Scan(&identity.ID, &identity.Username, &identity.Role)
	if err == sql.ErrNoRows {
		return models.Identity{}, errUnauthorized
	}
	if err != nil {
		return models.Identity{}, err
	}
	return identity, nil
}
