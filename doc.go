// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the OpenFloor realtime
debate server.

OpenFloor is a live debate platform: participants join a debate's
room, post supporting or opposing arguments, vote on them, and see
everyone else's activity as it happens over a single websocket.

# Starting the Server

The server requires environment variables or CLI flags for
configuration:

	DATABASE_URL=debates.db TOKEN_SECRET=... go run main.go

Or with flags:

	go run main.go -p 3419 -d "postgres://..." -t postgres -token-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path or PostgreSQL connection string
  - TOKEN_SECRET (-token-secret): secret for session token HMAC

Optional settings:

  - PORT (-p): server port (default: 3419)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CLIENT_ORIGIN (-origin): allowed browser origin for upgrades

# Architecture

The server uses a handler-based architecture with dependency injection:

  - realtime: websocket layer (rooms, presence, votes, notifications)
  - client: reconnecting Go client for the websocket endpoint
  - handlers: HTTP request handlers (accounts, debates, arguments, stats)
  - router: route definitions using Go 1.22+ routing
  - store: database-backed collaborators for the realtime layer
  - middleware: CORS, logging, JSON helpers
  - models: domain and wire types
  - auth: token generation and validation
  - db: schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
