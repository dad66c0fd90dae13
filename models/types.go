// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Debate status constants
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Argument side constants
const (
	SideSupporting = "supporting"
	SideOpposing   = "opposing"
)

// Vote outcome classification. Derived from the transition between the
// prior vote record and the new value; never stored.
const (
	OutcomeFirstVote        = "firstVote"
	OutcomeDirectionChanged = "directionChanged"
	OutcomeRemoved          = "removed"
	OutcomeUnchanged        = "unchanged"
)

// Notification kinds
const (
	NotificationReply = "reply"
	NotificationVote  = "vote"
)

// Domain types

// Identity is the authenticated principal bound to a connection for
// its whole lifetime.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Debate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Argument struct {
	ID        string     `json:"id"`
	DebateID  string     `json:"debate_id"`
	ParentID  *string    `json:"parent_id,omitempty"`
	AuthorID  string     `json:"author_id"`
	Author    string     `json:"author"`
	Content   string     `json:"content"`
	Side      string     `json:"side"`
	Votes     int        `json:"votes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Notification is ephemeral: built by the dispatcher, delivered to
// currently connected targets, never persisted or replayed.
type Notification struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	DebateID   string    `json:"debate_id,omitempty"`
	ArgumentID string    `json:"argument_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// Websocket payloads (client → server)

type JoinDebatePayload struct {
	DebateID string `json:"debate_id"`
}

type NewArgumentPayload struct {
	DebateID string  `json:"debate_id"`
	Content  string  `json:"content"`
	Side     string  `json:"side"`
	ParentID *string `json:"parent_id,omitempty"`
}

type VoteArgumentPayload struct {
	DebateID   string `json:"debate_id"`
	ArgumentID string `json:"argument_id"`
	Value      int    `json:"value"`
}

type TypingPayload struct {
	DebateID string `json:"debate_id"`
}

type SubscribePayload struct {
	DebateID string `json:"debate_id"`
}

type MarkNotificationReadPayload struct {
	NotificationID string `json:"notification_id"`
}

// Websocket payloads (server → client)

type UserPresencePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type Occupant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type ActiveUsersPayload struct {
	Users []Occupant `json:"users"`
}

type OnlineUsersPayload struct {
	UserIDs []string `json:"user_ids"`
}

type ArgumentEventPayload struct {
	Argument Argument `json:"argument"`
}

type ArgumentDeletedPayload struct {
	ArgumentID string `json:"argument_id"`
	DebateID   string `json:"debate_id"`
}

// VoteResultPayload is broadcast to the room after reconciliation.
// Tally is the authoritative cached aggregate; clients must not
// compute their own.
type VoteResultPayload struct {
	ArgumentID string `json:"argument_id"`
	Tally      int    `json:"tally"`
	Outcome    string `json:"outcome"`
	VoterID    string `json:"voter_id"`
}

type AnnouncementPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// REST request/response types

type CreateDebateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type CreateDebateResponse struct {
	DebateID string `json:"debate_id"`
}

type CreateArgumentRequest struct {
	Content  string  `json:"content"`
	Side     string  `json:"side"`
	ParentID *string `json:"parent_id,omitempty"`
}

type UpdateArgumentRequest struct {
	Content string `json:"content"`
}

type RegisterAccountRequest struct {
	Username string `json:"username"`
}

type RegisterAccountResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
