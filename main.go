// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/db"
	"github.com/danielhkuo/openfloor/handlers"
	"github.com/danielhkuo/openfloor/middleware"
	"github.com/danielhkuo/openfloor/realtime"
	"github.com/danielhkuo/openfloor/router"
	"github.com/danielhkuo/openfloor/store"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database; sqlite for development, postgres for
	// production, selected by -t / DATABASE_TYPE.
	dbConn, err := sql.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Wire storage, realtime, and REST together. The argument handler
	// serves both surfaces, so it exists before the realtime server
	// and learns its broadcast paths after.
	st := store.New(dbConn)
	argHandler := handlers.NewArgumentHandler(dbConn, cfg)
	rt := realtime.NewServer(cfg, st, st, st, argHandler)
	argHandler.AttachRealtime(rt.Hub(), rt.Dispatcher())

	mux := router.NewRouter(dbConn, cfg, rt, argHandler)

	// Background probes and sweeps
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Run(ctx)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		rt.Shutdown("server shutting down")
		cancel()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
