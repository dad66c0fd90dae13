// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/openfloor/auth"
	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/middleware"
	"github.com/danielhkuo/openfloor/models"
)

// tokenTTL is the lifetime of a session token issued at registration.
const tokenTTL = 30 * 24 * time.Hour

type AccountHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAccountHandler(db *sql.DB, cfg cliparse.Config) *AccountHandler {
	return &AccountHandler{db: db, cfg: cfg}
}

// Register handles POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAccountRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Username == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Username) > 32 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be at most 32 characters")
		return
	}

	var taken bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM account WHERE username = $1)
	`, req.Username).Scan(&taken)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		middleware.ErrorResponse(w, http.StatusConflict, "username is taken")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate account ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO account (id, username, role, created_at)
		VALUES ($1, $2, 'user', $3)
	`, userID, req.Username, time.Now())
	if err != nil {
		slog.Error("failed to insert account", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	token := auth.GenerateToken(userID, h.cfg.TokenSecret, tokenTTL)

	slog.Info("account registered", "user_id", userID, "username", req.Username)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterAccountResponse{
		UserID: userID,
		Token:  token,
	})
}
