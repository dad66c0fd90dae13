// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/openfloor/auth"
	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/middleware"
	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/realtime"
)

// ArgumentHandler serves the argument REST surface and doubles as the
// realtime layer's argument service: websocket submissions and REST
// submissions share the same persistence path.
type ArgumentHandler struct {
	db  *sql.DB
	cfg cliparse.Config

	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher
}

func NewArgumentHandler(db *sql.DB, cfg cliparse.Config) *ArgumentHandler {
	return &ArgumentHandler{db: db, cfg: cfg}
}

// AttachRealtime wires the broadcast paths. Called once at startup,
// after the realtime server exists; REST mutations are silent until
// then.
func (h *ArgumentHandler) AttachRealtime(hub *realtime.Hub, dispatcher *realtime.Dispatcher) {
	h.hub = hub
	h.dispatcher = dispatcher
}

// Create persists a new argument. This is the service method the
// websocket layer calls; it does not broadcast, the caller does.
func (h *ArgumentHandler) Create(ctx context.Context, author models.Identity, req models.NewArgumentPayload) (models.Argument, error) {
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM debate WHERE id = $1 AND status = 'open')
	`, req.DebateID).Scan(&exists)
	if err != nil {
		return models.Argument{}, fmt.Errorf("check debate: %w", err)
	}
	if !exists {
		return models.Argument{}, realtime.ErrNotFound
	}

	if req.ParentID != nil {
		var parentDebate string
		err := h.db.QueryRowContext(ctx, `
			SELECT debate_id FROM argument WHERE id = $1
		`, *req.ParentID).Scan(&parentDebate)
		if err == sql.ErrNoRows || (err == nil && parentDebate != req.DebateID) {
			return models.Argument{}, realtime.ErrNotFound
		}
		if err != nil {
			return models.Argument{}, fmt.Errorf("check parent: %w", err)
		}
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Argument{}, fmt.Errorf("generate argument id: %w", err)
	}

	now := time.Now().UTC()
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO argument (id, debate_id, parent_id, author_id, content, side, votes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
	`, id, req.DebateID, req.ParentID, author.ID, req.Content, req.Side, now)
	if err != nil {
		return models.Argument{}, fmt.Errorf("insert argument: %w", err)
	}

	return models.Argument{
		ID:        id,
		DebateID:  req.DebateID,
		ParentID:  req.ParentID,
		AuthorID:  author.ID,
		Author:    author.Username,
		Content:   req.Content,
		Side:      req.Side,
		Votes:     0,
		CreatedAt: now,
	}, nil
}

// CreateArgument handles POST /debates/{id}/arguments
func (h *ArgumentHandler) CreateArgument(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(h.db, h.cfg.TokenSecret, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	debateID := r.PathValue("id")
	var req models.CreateArgumentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Content == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Side != models.SideSupporting && req.Side != models.SideOpposing {
		middleware.ErrorResponse(w, http.StatusBadRequest, "side must be supporting or opposing")
		return
	}

	argument, err := h.Create(r.Context(), identity, models.NewArgumentPayload{
		DebateID: debateID,
		Content:  req.Content,
		Side:     req.Side,
		ParentID: req.ParentID,
	})
	if errors.Is(err, realtime.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Debate or parent argument not found")
		return
	}
	if err != nil {
		slog.Error("failed to create argument", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create argument")
		return
	}

	h.emitCreated(r.Context(), identity, argument)

	middleware.JSONResponse(w, http.StatusCreated, argument)
}

// emitCreated mirrors the websocket submission path for REST writes:
// the room hears new_argument and a reply pings the parent's author.
func (h *ArgumentHandler) emitCreated(ctx context.Context, author models.Identity, argument models.Argument) {
	if h.hub == nil {
		return
	}
	if err := h.hub.BroadcastToRoom(argument.DebateID, realtime.EventArgumentCreated,
		models.ArgumentEventPayload{Argument: argument}); err != nil {
		slog.Error("broadcast argument", "argument_id", argument.ID, "error", err)
	}

	if argument.ParentID == nil || h.dispatcher == nil {
		return
	}
	parent, err := h.findArgument(ctx, *argument.ParentID)
	if err == nil && parent.AuthorID != author.ID {
		h.dispatcher.NotifyReply(parent, argument)
	}
}

// UpdateArgument handles PUT /arguments/{id}
func (h *ArgumentHandler) UpdateArgument(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(h.db, h.cfg.TokenSecret, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	argumentID := r.PathValue("id")
	var req models.UpdateArgumentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Content == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "content is required")
		return
	}

	argument, err := h.findArgument(r.Context(), argumentID)
	if errors.Is(err, realtime.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Argument not found")
		return
	}
	if err != nil {
		slog.Error("failed to load argument", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if argument.AuthorID != identity.ID && identity.Role != "admin" {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the author may edit an argument")
		return
	}

	now := time.Now().UTC()
	_, err = h.db.ExecContext(r.Context(), `
		UPDATE argument SET content = $1, updated_at = $2 WHERE id = $3
	`, req.Content, now, argumentID)
	if err != nil {
		slog.Error("failed to update argument", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update argument")
		return
	}

	argument.Content = req.Content
	argument.UpdatedAt = &now

	if h.hub != nil {
		_ = h.hub.BroadcastToRoom(argument.DebateID, realtime.EventArgumentUpdated,
			models.ArgumentEventPayload{Argument: argument})
	}

	middleware.JSONResponse(w, http.StatusOK, argument)
}

// DeleteArgument handles DELETE /arguments/{id}
func (h *ArgumentHandler) DeleteArgument(w http.ResponseWriter, r *http.Request) {
	identity, err := requireIdentity(h.db, h.cfg.TokenSecret, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	argumentID := r.PathValue("id")
	argument, err := h.findArgument(r.Context(), argumentID)
	if errors.Is(err, realtime.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Argument not found")
		return
	}
	if err != nil {
		slog.Error("failed to load argument", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if argument.AuthorID != identity.ID && identity.Role != "admin" {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the author may delete an argument")
		return
	}

	// Replies and votes go with it via ON DELETE CASCADE.
	_, err = h.db.ExecContext(r.Context(), `DELETE FROM argument WHERE id = $1`, argumentID)
	if err != nil {
		slog.Error("failed to delete argument", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete argument")
		return
	}

	slog.Info("argument deleted", "argument_id", argumentID, "by", identity.Username)

	if h.hub != nil {
		_ = h.hub.BroadcastToRoom(argument.DebateID, realtime.EventArgumentDeleted,
			models.ArgumentDeletedPayload{ArgumentID: argumentID, DebateID: argument.DebateID})
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ArgumentHandler) findArgument(ctx context.Context, argumentID string) (models.Argument, error) {
	var arg models.Argument
	err := h.db.QueryRowContext(ctx, `
		SELECT a.id, a.debate_id, a.parent_id, a.author_id, acc.username,
		       a.content, a.side, a.votes, a.created_at, a.updated_at
		FROM argument a
		JOIN account acc ON acc.id = a.author_id
		WHERE a.id = $1
	`, argumentID).Scan(&arg.ID, &arg.DebateID, &arg.ParentID, &arg.AuthorID,
		&arg.Author, &arg.Content, &arg.Side, &arg.Votes, &arg.CreatedAt, &arg.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Argument{}, realtime.ErrNotFound
	}
	if err != nil {
		return models.Argument{}, err
	}
	return arg, nil
}
