// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and event payload types.

# Domain Types

  - Identity: authenticated principal (id, username, role)
  - Debate: debate metadata and lifecycle state
  - Argument: a typed statement in a debate tree, with its cached tally
  - Notification: ephemeral addressed notification record

# Websocket Payloads

Client → server payloads parallel the event vocabulary
(JoinDebatePayload, NewArgumentPayload, VoteArgumentPayload,
TypingPayload, SubscribePayload). Server → client payloads carry
presence transitions, argument events, vote results, and addressed
notifications.

# Vote Outcomes

The outcome constants (firstVote, directionChanged, removed, unchanged)
classify the transition a vote submission caused. The classification is
derived at reconciliation time and used to decide whether to notify; it
is never stored.

# REST Types

Request/response structs for the thin CRUD surface (debates, arguments,
account registration) plus the shared ErrorResponse envelope.
*/
package models
