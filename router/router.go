// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/handlers"
	"github.com/danielhkuo/openfloor/middleware"
	"github.com/danielhkuo/openfloor/realtime"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, rt *realtime.Server, argHandler *handlers.ArgumentHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(db, cfg)
	debateHandler := handlers.NewDebateHandler(db, cfg)
	statsHandler := handlers.NewStatsHandler(rt.Monitor())

	// Health and monitoring
	mux.HandleFunc("GET /health", statsHandler.Health)
	mux.HandleFunc("GET /stats", middleware.WithLogging(statsHandler.GetStats))

	// Realtime endpoint; authentication happens before the upgrade.
	mux.HandleFunc("GET /ws", rt.ServeWS)

	// Accounts
	mux.HandleFunc("POST /register", middleware.WithLogging(accountHandler.Register))

	// Debates
	mux.HandleFunc("POST /debates", middleware.WithLogging(debateHandler.CreateDebate))
	mux.HandleFunc("GET /debates/{id}", middleware.WithLogging(debateHandler.GetDebate))

	// Arguments
	mux.HandleFunc("POST /debates/{id}/arguments", middleware.WithLogging(argHandler.CreateArgument))
	mux.HandleFunc("PUT /arguments/{id}", middleware.WithLogging(argHandler.UpdateArgument))
	mux.HandleFunc("DELETE /arguments/{id}", middleware.WithLogging(argHandler.DeleteArgument))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("openfloor API v1"))
	})

	return mux
}
