// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/realtime"
	"github.com/gorilla/websocket"
)

// State is the client's connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateLost
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateLost:
		return "lost"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected  = errors.New("client is not connected")
	ErrAlreadyActive = errors.New("client already connecting or connected")
)

// Reconnect tunables are variables so tests can shorten the schedule.
var (
	reconnectBaseWait = time.Second
	reconnectFactor   = 1.5
	maxReconnects     = 5
)

const (
	typingIdle   = 2 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler consumes one server event's payload.
type Handler func(data json.RawMessage)

// Client is a reconnecting websocket client. It remembers the debate
// room it occupies and its notification subscriptions, and restores
// both automatically after an unplanned disconnect.
type Client struct {
	url   string
	token string

	mu       sync.Mutex
	state    State
	ws       *websocket.Conn
	room     string
	subs     map[string]struct{}
	handlers map[string]Handler
	onState  func(State)

	typingActive bool
	typingTimer  *time.Timer

	generation int // bumped on every disconnect, stale pumps exit

	closed chan struct{}
	wg     sync.WaitGroup
}

// New creates a client for the given websocket URL and session token.
func New(url, token string) *Client {
	return &Client{
		url:      url,
		token:    token,
		subs:     make(map[string]struct{}),
		handlers: make(map[string]Handler),
		closed:   make(chan struct{}),
	}
}

// On registers a handler for a server event. Must be called before
// Connect; handlers run on the read loop goroutine.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = h
	c.mu.Unlock()
}

// OnStateChange registers a listener for lifecycle transitions.
func (c *Client) OnStateChange(f func(State)) {
	c.mu.Lock()
	c.onState = f
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	listener := c.onState
	c.mu.Unlock()

	slog.Debug("client state change", "state", s.String())
	if listener != nil {
		listener(s)
	}
}

// Connect dials the server and starts the read loop. Blocks only for
// the dial itself.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

func (c *Client) dial() error {
	ws, _, err := websocket.DefaultDialer.Dial(c.url+"?token="+c.token, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.ws = ws
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.setState(StateConnected)

	c.wg.Add(1)
	go c.readLoop(ws, gen)
	return nil
}

// readLoop consumes frames until the transport fails, then hands off
// to the reconnect loop unless the client was closed deliberately.
func (c *Client) readLoop(ws *websocket.Conn, gen int) {
	defer c.wg.Done()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				c.setState(StateDisconnected)
			default:
				c.setState(StateLost)
				c.wg.Add(1)
				go c.reconnectLoop(gen)
			}
			return
		}

		var frame realtime.Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			slog.Warn("client received malformed frame", "error", err)
			continue
		}

		c.mu.Lock()
		h := c.handlers[frame.Event]
		c.mu.Unlock()
		if h != nil {
			h(frame.Data)
		}
	}
}

// reconnectLoop retries the dial with growing waits, passing through
// Connecting on each attempt. After a successful dial it restores room
// membership and subscriptions; exhausting its attempts leaves the
// client at Lost for good, distinct from a deliberate Close.
func (c *Client) reconnectLoop(gen int) {
	defer c.wg.Done()

	wait := reconnectBaseWait
	for attempt := 1; attempt <= maxReconnects; attempt++ {
		select {
		case <-c.closed:
			c.setState(StateDisconnected)
			return
		case <-time.After(wait):
		}

		c.mu.Lock()
		stale := c.generation != gen
		c.mu.Unlock()
		if stale {
			return
		}

		slog.Info("reconnecting", "attempt", attempt, "of", maxReconnects)
		c.setState(StateConnecting)
		if err := c.dial(); err != nil {
			slog.Warn("reconnect failed", "attempt", attempt, "error", err)
			c.setState(StateLost)
			wait = time.Duration(float64(wait) * reconnectFactor)
			continue
		}

		c.restore()
		return
	}

	slog.Error("giving up on reconnection", "attempts", maxReconnects)
	c.setState(StateLost)
}

// restore re-joins the remembered room and re-subscribes every
// notification channel on the new transport.
func (c *Client) restore() {
	c.mu.Lock()
	room := c.room
	subs := make([]string, 0, len(c.subs))
	for id := range c.subs {
		subs = append(subs, id)
	}
	c.mu.Unlock()

	if room != "" {
		if err := c.send("join_debate", models.JoinDebatePayload{DebateID: room}); err != nil {
			slog.Warn("rejoin after reconnect failed", "debate_id", room, "error", err)
		}
	}
	for _, id := range subs {
		if err := c.send("subscribe_debate_notifications", models.SubscribePayload{DebateID: id}); err != nil {
			slog.Warn("resubscribe after reconnect failed", "debate_id", id, "error", err)
		}
	}
}

// Close shuts the client down for good; no reconnect follows.
func (c *Client) Close() {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	ws := c.ws
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
	c.wg.Wait()
	c.setState(StateDisconnected)
}

func (c *Client) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}

	c.mu.Lock()
	ws := c.ws
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || ws == nil {
		return ErrNotConnected
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(realtime.Frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Join enters a debate room. The room is remembered for reconnects.
func (c *Client) Join(debateID string) error {
	c.mu.Lock()
	c.room = debateID
	c.mu.Unlock()
	return c.send("join_debate", models.JoinDebatePayload{DebateID: debateID})
}

// Leave exits the current room and forgets it.
func (c *Client) Leave() error {
	c.mu.Lock()
	c.room = ""
	c.typingActive = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.mu.Unlock()
	return c.send("leave_debate", struct{}{})
}

// SubmitArgument posts a new argument to the current debate.
func (c *Client) SubmitArgument(debateID, content, side string, parentID *string) error {
	return c.send("new_argument", models.NewArgumentPayload{
		DebateID: debateID,
		Content:  content,
		Side:     side,
		ParentID: parentID,
	})
}

// Vote submits the caller's absolute stance on an argument.
func (c *Client) Vote(debateID, argumentID string, value int) error {
	return c.send("vote_argument", models.VoteArgumentPayload{
		DebateID:   debateID,
		ArgumentID: argumentID,
		Value:      value,
	})
}

// Typing reports keystroke activity. Only the idle-to-active edge
// emits typing_start; further calls while active just push back the
// idle timer that will emit typing_end.
func (c *Client) Typing(debateID string) error {
	c.mu.Lock()
	wasActive := c.typingActive
	c.typingActive = true
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(typingIdle, func() { c.typingIdleElapsed(debateID) })
	c.mu.Unlock()

	if wasActive {
		return nil
	}
	return c.send("typing_start", models.TypingPayload{DebateID: debateID})
}

// StopTyping emits an explicit typing_end, for submit or blur.
func (c *Client) StopTyping(debateID string) error {
	c.mu.Lock()
	wasActive := c.typingActive
	c.typingActive = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.mu.Unlock()

	if !wasActive {
		return nil
	}
	return c.send("typing_end", models.TypingPayload{DebateID: debateID})
}

func (c *Client) typingIdleElapsed(debateID string) {
	c.mu.Lock()
	if !c.typingActive {
		c.mu.Unlock()
		return
	}
	c.typingActive = false
	c.mu.Unlock()

	if err := c.send("typing_end", models.TypingPayload{DebateID: debateID}); err != nil {
		slog.Debug("typing_end after idle failed", "error", err)
	}
}

// Subscribe follows a debate's notification channel. Remembered for
// reconnects.
func (c *Client) Subscribe(debateID string) error {
	c.mu.Lock()
	c.subs[debateID] = struct{}{}
	c.mu.Unlock()
	return c.send("subscribe_debate_notifications", models.SubscribePayload{DebateID: debateID})
}

// Unsubscribe stops following a debate's notification channel.
func (c *Client) Unsubscribe(debateID string) error {
	c.mu.Lock()
	delete(c.subs, debateID)
	c.mu.Unlock()
	return c.send("unsubscribe_debate_notifications", models.SubscribePayload{DebateID: debateID})
}

// RequestOnlineUsers asks for the global online list; the reply
// arrives on the online_users handler.
func (c *Client) RequestOnlineUsers() error {
	return c.send("get_online_users", struct{}{})
}

// MarkNotificationRead acknowledges a notification.
func (c *Client) MarkNotificationRead(notificationID string) error {
	return c.send("mark_notification_read", models.MarkNotificationReadPayload{
		NotificationID: notificationID,
	})
}
