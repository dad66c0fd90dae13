// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client → server events
const (
	EventJoinDebate              = "join_debate"
	EventLeaveDebate             = "leave_debate"
	EventNewArgument             = "new_argument"
	EventVoteArgument            = "vote_argument"
	EventTypingStart             = "typing_start"
	EventTypingEnd               = "typing_end"
	EventGetOnlineUsers          = "get_online_users"
	EventSubscribeNotifications  = "subscribe_debate_notifications"
	EventUnsubscribeNotification = "unsubscribe_debate_notifications"
	EventMarkNotificationRead    = "mark_notification_read"
)

// Server → client events
const (
	EventUserJoined         = "user_joined"
	EventUserLeft           = "user_left"
	EventActiveUsers        = "active_users"
	EventArgumentCreated    = "new_argument"
	EventArgumentUpdated    = "update_argument"
	EventArgumentDeleted    = "delete_argument"
	EventVoteResult         = "vote_result"
	EventUserTyping         = "user_typing"
	EventUserStoppedTyping  = "user_stopped_typing"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventOnlineUsers        = "online_users"
	EventNotification       = "notification"
	EventDebateNotification = "debate_notification"
	EventAnnouncement       = "server_announcement"
	EventError              = "error"
)

// notificationChannelPrefix keys the parallel per-debate notification
// channel, distinct from the primary room so users can follow a debate
// without joining its live room.
const notificationChannelPrefix = "notifications:"

// NotificationChannel returns the subscription channel name for a debate.
func NotificationChannel(debateID string) string {
	return notificationChannelPrefix + debateID
}

func marshalFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	b, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", event, err)
	}
	return b, nil
}
