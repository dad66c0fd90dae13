// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first via godotenv, then
CLI flags are parsed, then remaining blanks fall back to environment
variables. CLI flags take precedence.

# Config Fields

  - Port: Server listen port (default: 3419)
  - DatabaseURL: Connection string (required)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - TokenSecret: Secret for session token HMAC (required)
  - ClientOrigin: Allowed browser origin for websocket upgrades

Realtime tunables (stale connection timeout, room retention window,
sweep and latency-probe intervals, typing expiry, send queue size,
max inbound message size) default sensibly and are normally left alone;
tests override them through ApplyDefaults.

# Environment Variables

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	CLIENT_ORIGIN  → -origin
	TOKEN_SECRET   → -token-secret
*/
package cliparse
