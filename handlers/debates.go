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

type DebateHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDebateHandler(db *sql.DB, cfg cliparse.Config) *DebateHandler {
	return &DebateHandler{db: db, cfg: cfg}
}

// CreateDebate handles POST /debates
func (h *DebateHandler) CreateDebate(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(h.db, h.cfg.TokenSecret, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	var req models.CreateDebateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	debateID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate debate ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create debate")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO debate (id, title, description, creator_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, debateID, req.Title, req.Description, identity.ID, models.StatusOpen, time.Now())
	if err != nil {
		slog.Error("failed to insert debate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create debate")
		return
	}

	slog.Info("debate created", "debate_id", debateID, "creator", identity.Username)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateDebateResponse{
		DebateID: debateID,
	})
}

// GetDebate handles GET /debates/{id}
func (h *DebateHandler) GetDebate(w http.ResponseWriter, r *http.Request) {
	debateID := r.PathValue("id")
	if debateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "debate id is required")
		return
	}

	var debate models.Debate
	err := h.db.QueryRow(`
		SELECT id, title, description, creator_id, status, created_at
		FROM debate WHERE id = $1
	`, debateID).Scan(&debate.ID, &debate.Title, &debate.Description,
		&debate.CreatorID, &debate.Status, &debate.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Debate not found")
		return
	}
	if err != nil {
		slog.Error("failed to query debate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT a.id, a.debate_id, a.parent_id, a.author_id, acc.username,
		       a.content, a.side, a.votes, a.created_at, a.updated_at
		FROM argument a
		JOIN account acc ON acc.id = a.author_id
		WHERE a.debate_id = $1
		ORDER BY a.created_at
	`, debateID)
	if err != nil {
		slog.Error("failed to query arguments", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	arguments := []models.Argument{}
	for rows.Next() {
		var arg models.Argument
		if err := rows.Scan(&arg.ID, &arg.DebateID, &arg.ParentID, &arg.AuthorID,
			&arg.Author, &arg.Content, &arg.Side, &arg.Votes,
			&arg.CreatedAt, &arg.UpdatedAt); err != nil {
			slog.Error("failed to scan argument", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		arguments = append(arguments, arg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("argument rows error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, struct {
		Debate    models.Debate     `json:"debate"`
		Arguments []models.Argument `json:"arguments"`
	}{debate, arguments})
}
