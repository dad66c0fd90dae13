// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/danielhkuo/openfloor/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Conn is one live websocket connection with its authenticated
// identity bound for the connection's whole lifetime. The outbound
// path is a bounded queue drained by writePump; a full queue
// disconnects the client so one slow receiver cannot back up a room.
type Conn struct {
	ID       string
	Identity models.Identity

	hub *Hub
	ws  *websocket.Conn

	send chan []byte
	done chan struct{}

	mu          sync.Mutex
	room        string              // primary debate room, "" if none
	subs        map[string]struct{} // notification channel memberships
	lastActive  time.Time
	connectedAt time.Time
	closed      bool

	sent     int64
	received int64
	errors   int64

	closeOnce sync.Once
}

func newConn(id string, identity models.Identity, ws *websocket.Conn, hub *Hub, queueSize int) *Conn {
	now := time.Now()
	return &Conn{
		ID:          id,
		Identity:    identity,
		hub:         hub,
		ws:          ws,
		send:        make(chan []byte, queueSize),
		done:        make(chan struct{}),
		subs:        make(map[string]struct{}),
		lastActive:  now,
		connectedAt: now,
	}
}

// enqueue hands a frame to the write pump without blocking. Overflow
// means the client is too slow to keep up; the connection is torn down
// rather than letting its backlog grow unbounded.
func (c *Conn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		c.mu.Lock()
		c.sent++
		c.mu.Unlock()
		return true
	default:
		slog.Warn("send queue overflow, disconnecting",
			"conn_id", c.ID, "user_id", c.Identity.ID)
		go c.Close()
		return false
	}
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Conn) lastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Conn) countReceived() {
	c.mu.Lock()
	c.received++
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Conn) countError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// setRoom records the new primary room and returns the previous one.
func (c *Conn) setRoom(next string) (previous string) {
	c.mu.Lock()
	previous = c.room
	c.room = next
	c.mu.Unlock()
	return previous
}

func (c *Conn) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Conn) addSub(channel string) {
	c.mu.Lock()
	c.subs[channel] = struct{}{}
	c.mu.Unlock()
}

func (c *Conn) removeSub(channel string) {
	c.mu.Lock()
	delete(c.subs, channel)
	c.mu.Unlock()
}

func (c *Conn) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	channels := make([]string, 0, len(c.subs))
	for channel := range c.subs {
		channels = append(channels, channel)
	}
	return channels
}

// Probe sends a timestamped ping; the pong handler in readPump
// reports the round trip to the monitor. WriteControl is safe to call
// concurrently with the write pump.
func (c *Conn) Probe() {
	payload := strconv.FormatInt(time.Now().UnixNano(), 10)
	deadline := time.Now().Add(writeWait)
	if err := c.ws.WriteControl(websocket.PingMessage, []byte(payload), deadline); err != nil {
		slog.Debug("latency probe failed", "conn_id", c.ID, "error", err)
	}
}

// Close tears the connection down exactly once: transport closed,
// pumps unblocked, hub cleanup (rooms, subscriptions, presence) run.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
		c.hub.Disconnect(c)
	})
}

// writePump drains the outbound queue onto the websocket and keeps
// the connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			deadline := time.Now().Add(writeWait)
			_ = c.ws.WriteControl(websocket.CloseMessage, nil, deadline)
			return
		}
	}
}
