// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP routes for the OpenFloor server using
Go 1.22+ method-aware routing.

# Routes

	GET  /health                  → liveness check
	GET  /stats                   → realtime statistics snapshot
	GET  /ws                      → websocket upgrade (token required)
	POST /register                → create account, returns token
	POST /debates                 → create debate
	GET  /debates/{id}            → debate with its arguments
	POST /debates/{id}/arguments  → post argument (also broadcast)
	PUT  /arguments/{id}          → edit argument (author only)
	DELETE /arguments/{id}        → delete argument (author only)
*/
package router
