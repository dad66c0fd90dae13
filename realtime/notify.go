// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"log/slog"
	"time"

	"github.com/danielhkuo/openfloor/models"
	"github.com/google/uuid"
)

// Dispatcher fans notifications out to their targets. Notifications
// are fire-and-forget: offline targets and full queues drop them, and
// nothing is stored for replay.
type Dispatcher struct {
	hub *Hub
}

func NewDispatcher(hub *Hub) *Dispatcher {
	return &Dispatcher{hub: hub}
}

// Notify stamps the notification with an ID and timestamp, delivers it
// to every connection of each target identity, and mirrors it onto the
// debate's notification channel when the notification names a debate.
func (d *Dispatcher) Notify(targetIDs []string, n models.Notification) {
	n.ID = uuid.NewString()
	n.Timestamp = time.Now().UTC()
	n.Read = false

	for _, id := range targetIDs {
		if err := d.hub.SendToIdentity(id, EventNotification, n); err != nil {
			slog.Error("notify identity", "user_id", id, "error", err)
		}
	}

	if n.DebateID != "" {
		channel := NotificationChannel(n.DebateID)
		if err := d.hub.BroadcastToRoom(channel, EventDebateNotification, n); err != nil {
			slog.Error("notify channel", "debate_id", n.DebateID, "error", err)
		}
	}
}

// NotifyReply tells a parent argument's author about a new reply. The
// author replying to themselves is the caller's check, not this one.
func (d *Dispatcher) NotifyReply(parent models.Argument, reply models.Argument) {
	d.Notify([]string{parent.AuthorID}, models.Notification{
		Kind:       models.NotificationReply,
		Title:      "New reply",
		Message:    reply.Author + " replied to your argument",
		DebateID:   reply.DebateID,
		ArgumentID: reply.ID,
	})
}

// NotifyVote tells an argument's author about a meaningful vote
// transition. Only firstVote and directionChanged reach here.
func (d *Dispatcher) NotifyVote(argument models.Argument, voter models.Identity, outcome string) {
	message := voter.Username + " voted on your argument"
	if outcome == models.OutcomeDirectionChanged {
		message = voter.Username + " changed their vote on your argument"
	}
	d.Notify([]string{argument.AuthorID}, models.Notification{
		Kind:       models.NotificationVote,
		Title:      "New vote",
		Message:    message,
		DebateID:   argument.DebateID,
		ArgumentID: argument.ID,
	})
}
