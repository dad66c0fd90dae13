// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/openfloor/models"
)

// ErrInvalidIdentifier means a debate ID failed shape validation before
// any lookup was attempted.
var ErrInvalidIdentifier = errors.New("invalid debate identifier")

// ErrConnectionClosed means the connection was torn down before or
// during the operation.
var ErrConnectionClosed = errors.New("connection is closed")

const maxIdentifierLen = 64

// room is one debate's live membership. Broadcasts to a room happen
// under its own lock, so delivery order within a room matches send
// order even while other rooms broadcast concurrently.
type room struct {
	mu           sync.Mutex
	name         string
	members      map[*Conn]struct{}
	peak         int
	lastActivity time.Time
}

func (r *room) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Hub owns room membership and all fan-out paths. Rooms come into
// existence on first join and are swept after sitting empty longer
// than the retention window.
type Hub struct {
	subjects SubjectStore
	presence *Presence
	monitor  *Monitor

	mu    sync.Mutex
	rooms map[string]*room
	conns map[*Conn]struct{}

	retention time.Duration
	queueSize int
}

func NewHub(subjects SubjectStore, presence *Presence, monitor *Monitor, retention time.Duration, queueSize int) *Hub {
	return &Hub{
		subjects:  subjects,
		presence:  presence,
		monitor:   monitor,
		rooms:     make(map[string]*room),
		conns:     make(map[*Conn]struct{}),
		retention: retention,
		queueSize: queueSize,
	}
}

// Register adds an authenticated connection to the hub and announces
// the identity to everyone else if this is its first connection.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	cameOnline := h.presence.Register(c)
	h.monitor.ConnOpened()

	slog.Info("connection registered",
		"conn_id", c.ID, "user_id", c.Identity.ID, "username", c.Identity.Username)

	if cameOnline {
		h.broadcastExcept(c.Identity.ID, EventUserOnline, models.UserPresencePayload{
			UserID:   c.Identity.ID,
			Username: c.Identity.Username,
		})
	}
}

// Join moves the connection into a debate room, leaving its previous
// room first. A connection occupies at most one primary room. Returns
// the occupants already present before this join.
func (h *Hub) Join(ctx context.Context, c *Conn, debateID string) ([]models.Occupant, error) {
	if debateID == "" || len(debateID) > maxIdentifierLen {
		return nil, ErrInvalidIdentifier
	}

	exists, err := h.subjects.DebateExists(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("join debate: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	if !h.registered(c) {
		return nil, ErrConnectionClosed
	}

	if previous := c.setRoom(debateID); previous != "" && previous != debateID {
		h.leaveRoom(c, previous, true)
	}

	r := h.getOrCreateRoom(debateID)

	r.mu.Lock()
	occupants := occupantList(r.members)
	r.members[c] = struct{}{}
	if len(r.members) > r.peak {
		r.peak = len(r.members)
	}
	r.lastActivity = time.Now()
	size := len(r.members)
	r.mu.Unlock()

	// Disconnect may have raced the insert. A torn-down connection must
	// not survive as a phantom occupant, so re-check and undo.
	if !h.registered(c) {
		c.setRoom("")
		h.leaveRoom(c, debateID, false)
		return nil, ErrConnectionClosed
	}

	h.monitor.SetRoomOccupancy(debateID, size)

	h.BroadcastToRoomExcept(debateID, c, EventUserJoined, models.UserPresencePayload{
		UserID:   c.Identity.ID,
		Username: c.Identity.Username,
	})

	slog.Info("joined debate", "conn_id", c.ID, "user_id", c.Identity.ID, "debate_id", debateID)
	return occupants, nil
}

// Leave removes the connection from its primary room. Leaving when not
// in a room is a no-op.
func (h *Hub) Leave(c *Conn) {
	if previous := c.setRoom(""); previous != "" {
		h.leaveRoom(c, previous, true)
	}
}

// leaveRoom detaches the connection from one named room and, when
// announce is set, tells the remaining occupants.
func (h *Hub) leaveRoom(c *Conn, name string, announce bool) {
	h.mu.Lock()
	r := h.rooms[name]
	h.mu.Unlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	_, wasMember := r.members[c]
	delete(r.members, c)
	r.lastActivity = time.Now()
	size := len(r.members)
	r.mu.Unlock()

	if !wasMember {
		return
	}

	h.monitor.SetRoomOccupancy(name, size)

	if announce {
		h.BroadcastToRoomExcept(name, c, EventUserLeft, models.UserPresencePayload{
			UserID:   c.Identity.ID,
			Username: c.Identity.Username,
		})
	}
}

// Subscribe adds the connection to a debate's notification channel.
// Subscriptions are not validated against the debate table; a channel
// for a vanished debate simply never carries traffic.
func (h *Hub) Subscribe(c *Conn, debateID string) error {
	if debateID == "" || len(debateID) > maxIdentifierLen {
		return ErrInvalidIdentifier
	}
	if !h.registered(c) {
		return ErrConnectionClosed
	}
	channel := NotificationChannel(debateID)
	c.addSub(channel)

	r := h.getOrCreateRoom(channel)
	r.mu.Lock()
	r.members[c] = struct{}{}
	if len(r.members) > r.peak {
		r.peak = len(r.members)
	}
	r.lastActivity = time.Now()
	r.mu.Unlock()

	if !h.registered(c) {
		c.removeSub(channel)
		h.leaveRoom(c, channel, false)
		return ErrConnectionClosed
	}
	return nil
}

// Unsubscribe removes the connection from a debate's notification
// channel. Unsubscribing without a subscription is a no-op.
func (h *Hub) Unsubscribe(c *Conn, debateID string) {
	channel := NotificationChannel(debateID)
	c.removeSub(channel)
	h.leaveRoom(c, channel, false)
}

// registered reports whether the connection is still live in the hub.
func (h *Hub) registered(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[c]
	return ok
}

// BroadcastToRoom delivers an event to every member of a room. An
// empty or unknown room is a successful no-op.
func (h *Hub) BroadcastToRoom(name, event string, payload any) error {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		return err
	}
	h.deliverToRoom(name, nil, "", msg)
	return nil
}

// BroadcastToRoomExcept delivers to every member of a room except one
// connection, typically the event's originator.
func (h *Hub) BroadcastToRoomExcept(name string, skip *Conn, event string, payload any) error {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		return err
	}
	h.deliverToRoom(name, skip, "", msg)
	return nil
}

// BroadcastToRoomExceptIdentity delivers to a room while skipping every
// tab of one identity. Used where the originator is known by user
// rather than by connection, like typing-flag expiry.
func (h *Hub) BroadcastToRoomExceptIdentity(name, identityID, event string, payload any) error {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		return err
	}
	h.deliverToRoom(name, nil, identityID, msg)
	return nil
}

func (h *Hub) deliverToRoom(name string, skip *Conn, skipID string, msg []byte) {
	h.mu.Lock()
	r := h.rooms[name]
	h.mu.Unlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	r.lastActivity = time.Now()
	for member := range r.members {
		if member == skip {
			continue
		}
		if skipID != "" && member.Identity.ID == skipID {
			continue
		}
		if member.enqueue(msg) {
			h.monitor.MessageSent()
		}
	}
	r.mu.Unlock()
}

// SendToIdentity delivers an event to every connection of one identity,
// across all its tabs. Unknown or offline identities are a no-op.
func (h *Hub) SendToIdentity(identityID, event string, payload any) error {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		return err
	}
	for _, c := range h.presence.ConnsFor(identityID) {
		if c.enqueue(msg) {
			h.monitor.MessageSent()
		}
	}
	return nil
}

// BroadcastToAll delivers an event to every live connection.
func (h *Hub) BroadcastToAll(event string, payload any) error {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		return err
	}
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if c.enqueue(msg) {
			h.monitor.MessageSent()
		}
	}
	return nil
}

// broadcastExcept delivers to every connection not belonging to the
// given identity. Presence edges use it so a user's own tabs do not
// hear their online/offline announcements.
func (h *Hub) broadcastExcept(identityID, event string, payload any) {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		slog.Error("marshal broadcast", "event", event, "error", err)
		return
	}
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		if c.Identity.ID != identityID {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		if c.enqueue(msg) {
			h.monitor.MessageSent()
		}
	}
}

// Occupants lists the distinct identities currently in a room. Two
// tabs of one user count once.
func (h *Hub) Occupants(name string) []models.Occupant {
	h.mu.Lock()
	r := h.rooms[name]
	h.mu.Unlock()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return occupantList(r.members)
}

func occupantList(members map[*Conn]struct{}) []models.Occupant {
	seen := make(map[string]struct{}, len(members))
	occupants := make([]models.Occupant, 0, len(members))
	for c := range members {
		if _, dup := seen[c.Identity.ID]; dup {
			continue
		}
		seen[c.Identity.ID] = struct{}{}
		occupants = append(occupants, models.Occupant{
			UserID:   c.Identity.ID,
			Username: c.Identity.Username,
		})
	}
	return occupants
}

// Disconnect runs full teardown for a connection: primary room left
// with an announcement, notification channels dropped silently, typing
// flag cleared without a stop broadcast, presence updated. Safe to
// call more than once.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	_, known := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if !known {
		return
	}

	if previous := c.setRoom(""); previous != "" {
		h.presence.StopTyping(previous, c.Identity.ID)
		h.leaveRoom(c, previous, true)
	}
	for _, channel := range c.subscriptions() {
		c.removeSub(channel)
		h.leaveRoom(c, channel, false)
	}

	wentOffline := h.presence.Unregister(c)
	h.monitor.ConnClosed()

	slog.Info("connection closed",
		"conn_id", c.ID, "user_id", c.Identity.ID,
		"uptime", time.Since(c.connectedAt).Round(time.Second))

	if wentOffline {
		h.broadcastExcept(c.Identity.ID, EventUserOffline, models.UserPresencePayload{
			UserID:   c.Identity.ID,
			Username: c.Identity.Username,
		})
	}
}

func (h *Hub) getOrCreateRoom(name string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok {
		r = &room{
			name:         name,
			members:      make(map[*Conn]struct{}),
			lastActivity: time.Now(),
		}
		h.rooms[name] = r
		slog.Debug("room created", "room", name)
	}
	return r
}

// sweepEmptyRooms drops rooms that have sat empty past the retention
// window. A room that regains a member before the sweep keeps its
// peak occupancy history.
func (h *Hub) sweepEmptyRooms(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	swept := 0
	for name, r := range h.rooms {
		r.mu.Lock()
		idle := len(r.members) == 0 && now.Sub(r.lastActivity) > h.retention
		r.mu.Unlock()
		if idle {
			delete(h.rooms, name)
			h.monitor.RoomSwept(name)
			swept++
			slog.Debug("room swept", "room", name)
		}
	}
	return swept
}

// connsSnapshot returns the live connection set for the monitor's
// stale-connection scan.
func (h *Hub) connsSnapshot() []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}

// Shutdown announces the stop to every client, gives the frames a
// moment to flush, then closes all connections.
func (h *Hub) Shutdown(reason string, grace time.Duration) {
	_ = h.BroadcastToAll(EventAnnouncement, models.AnnouncementPayload{
		Type:    "shutdown",
		Message: reason,
	})
	time.Sleep(grace)

	for _, c := range h.connsSnapshot() {
		c.Close()
	}
}
