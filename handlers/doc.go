// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the OpenFloor
REST surface.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AccountHandler: registration and token issuance
  - DebateHandler: debate creation and retrieval
  - ArgumentHandler: argument CRUD, shared with the websocket layer
  - StatsHandler: health and realtime statistics

Handlers are created via constructor functions that accept *sql.DB and
Config:

	accountHandler := handlers.NewAccountHandler(db, cfg)

# Authentication

Registration returns a session token; every other mutating endpoint
expects it as "Authorization: Bearer <token>". The same token gates the
websocket upgrade at /ws.

# Realtime Emits

REST mutations reach connected clients through the same broadcast
paths the websocket handlers use. ArgumentHandler implements the
realtime layer's argument service, so an argument posted over either
surface is persisted identically and announced to the debate's room:

	POST /debates/{id}/arguments → new_argument to the room
	PUT /arguments/{id}          → update_argument to the room
	DELETE /arguments/{id}       → delete_argument to the room

The hub is attached after the realtime server is built:

	argHandler := handlers.NewArgumentHandler(db, cfg)
	srv := realtime.NewServer(cfg, st, st, st, argHandler)
	argHandler.AttachRealtime(srv.Hub(), srv.Dispatcher())
*/
package handlers
