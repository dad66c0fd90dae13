// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime implements the websocket layer of OpenFloor: session
gating, debate rooms, presence, vote reconciliation, notifications, and
server health.

# Components

  - Gate: authenticates upgrade requests before a socket is granted
  - Hub: room registry and every broadcast path
  - Presence: online identities and per-room typing flags
  - Engine: reconciles vote submissions into the persistent tally
  - Dispatcher: fans notifications out to identities and channels
  - Monitor: counters, latency probes, stale-connection and room sweeps
  - Server: ties the above together and dispatches inbound frames

The Server is created with its storage collaborators and mounted on the
router:

	srv := realtime.NewServer(cfg, store, store, store, argService)
	mux.HandleFunc("GET /ws", srv.ServeWS)
	go srv.Run(ctx)

# Wire Format

Every frame in both directions is a JSON envelope:

	{"event": "join_debate", "data": {"debate_id": "d1"}}

Client events: join_debate, leave_debate, new_argument, vote_argument,
typing_start, typing_end, get_online_users,
subscribe_debate_notifications, unsubscribe_debate_notifications,
mark_notification_read.

Server events: user_joined, user_left, active_users, new_argument,
update_argument, delete_argument, vote_result, user_typing,
user_stopped_typing, user_online, user_offline, online_users,
notification, debate_notification, server_announcement, error.

# Rooms and Channels

A connection occupies at most one primary debate room; joining another
leaves the first. Notification channels (one per debate, keyed
"notifications:<id>") are independent subscriptions with no limit, so a
user can follow debates without sitting in their rooms.

Per-room delivery order matches send order: each room broadcasts under
its own lock. No ordering holds across rooms.

# Slow Clients

Each connection has a bounded outbound queue drained by a single write
pump. When the queue overflows the connection is closed rather than
letting its backlog grow, so one stalled reader cannot back up a room.

# Votes

A vote submission carries the voter's absolute stance (-1, 0, 1). The
engine computes the tally delta against the prior record inside one
transaction, which makes resubmission idempotent and classifies the
transition (firstVote, directionChanged, removed, unchanged) for
broadcasts and notifications.
*/
package realtime
