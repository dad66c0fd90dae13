// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/openfloor/cliparse"
	"github.com/danielhkuo/openfloor/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server is the realtime endpoint: it authenticates upgrades, owns the
// hub and its collaborators, and dispatches every inbound frame.
type Server struct {
	cfg cliparse.Config

	gate       *Gate
	hub        *Hub
	presence   *Presence
	engine     *Engine
	dispatcher *Dispatcher
	monitor    *Monitor

	subjects  SubjectStore
	arguments ArgumentService

	upgrader websocket.Upgrader
}

func NewServer(cfg cliparse.Config, accounts AccountStore, subjects SubjectStore, votes VoteStore, arguments ArgumentService) *Server {
	presence := NewPresence(cfg.TypingExpiry)
	monitor := NewMonitor(cfg.StaleConnTimeout, cfg.LatencyInterval, cfg.SweepInterval)
	hub := NewHub(subjects, presence, monitor, cfg.RoomRetention, cfg.SendQueueSize)
	monitor.Attach(hub.connsSnapshot, hub.sweepEmptyRooms)

	s := &Server{
		cfg:        cfg,
		gate:       NewGate(accounts, cfg.TokenSecret),
		hub:        hub,
		presence:   presence,
		engine:     NewEngine(votes),
		dispatcher: NewDispatcher(hub),
		monitor:    monitor,
		subjects:   subjects,
		arguments:  arguments,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.ClientOrigin),
		},
	}

	// Expired typing flags announce themselves as if the user had sent
	// an explicit stop, so the typist's own tabs are skipped here too.
	presence.onTypingExpired = func(debateID string, identity models.Identity) {
		_ = hub.BroadcastToRoomExceptIdentity(debateID, identity.ID, EventUserStoppedTyping, models.UserPresencePayload{
			UserID:   identity.ID,
			Username: identity.Username,
		})
	}

	return s
}

// Hub exposes the room registry for the REST layer's emit calls.
func (s *Server) Hub() *Hub { return s.hub }

// Monitor exposes the health aggregator for the stats endpoint.
func (s *Server) Monitor() *Monitor { return s.monitor }

// Dispatcher exposes notification fan-out for the REST layer.
func (s *Server) Dispatcher() *Dispatcher { return s.dispatcher }

// Run drives the background probe and sweep loops until ctx ends.
func (s *Server) Run(ctx context.Context) {
	s.monitor.Run(ctx)
}

// Shutdown announces the stop and closes every connection.
func (s *Server) Shutdown(reason string) {
	s.hub.Shutdown(reason, 100*time.Millisecond)
}

func originChecker(allowed string) func(*http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// ServeWS authenticates the request, upgrades it, and runs the
// connection's pumps. Authentication failures are rejected before the
// upgrade so unauthenticated clients never hold a socket.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.gate.Authenticate(r)
	if err != nil {
		slog.Warn("websocket auth rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConn(uuid.NewString(), identity, ws, s.hub, s.cfg.SendQueueSize)
	s.hub.Register(c)

	go c.writePump()
	s.readPump(c)
}

// readPump reads frames until the connection dies, keeping the read
// deadline fresh via pongs. Pong payloads carry the probe's send time,
// which closes the latency measurement loop.
func (s *Server) readPump(c *Conn) {
	defer c.Close()

	c.ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(payload string) error {
		c.touch()
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if nanos, err := strconv.ParseInt(payload, 10, 64); err == nil {
			s.monitor.RecordLatency(time.Since(time.Unix(0, nanos)))
		}
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "conn_id", c.ID, "error", err)
			}
			return
		}

		c.countReceived()
		s.monitor.MessageReceived()

		var frame Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.sendError(c, "malformed frame")
			continue
		}
		s.dispatch(c, frame)
	}
}

// dispatch routes one inbound frame. Handler errors surface as error
// events to the offending connection only; they never tear the
// connection down or reach the room.
func (s *Server) dispatch(c *Conn, frame Frame) {
	ctx := context.Background()

	switch frame.Event {
	case EventJoinDebate:
		s.handleJoin(ctx, c, frame.Data)
	case EventLeaveDebate:
		s.handleLeave(c)
	case EventNewArgument:
		s.handleNewArgument(ctx, c, frame.Data)
	case EventVoteArgument:
		s.handleVote(ctx, c, frame.Data)
	case EventTypingStart:
		s.handleTyping(c, frame.Data, true)
	case EventTypingEnd:
		s.handleTyping(c, frame.Data, false)
	case EventGetOnlineUsers:
		s.sendTo(c, EventOnlineUsers, models.OnlineUsersPayload{UserIDs: s.presence.OnlineIDs()})
	case EventSubscribeNotifications:
		s.handleSubscribe(c, frame.Data, true)
	case EventUnsubscribeNotification:
		s.handleSubscribe(c, frame.Data, false)
	case EventMarkNotificationRead:
		// Notifications are not persisted; acknowledge by logging only.
		slog.Debug("mark_notification_read", "conn_id", c.ID, "user_id", c.Identity.ID)
	default:
		s.sendError(c, "unknown event: "+frame.Event)
	}
}

func (s *Server) handleJoin(ctx context.Context, c *Conn, data json.RawMessage) {
	var payload models.JoinDebatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(c, "malformed join_debate payload")
		return
	}

	occupants, err := s.hub.Join(ctx, c, payload.DebateID)
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		s.sendError(c, "invalid debate id")
		return
	case errors.Is(err, ErrNotFound):
		s.sendError(c, "debate not found")
		return
	case errors.Is(err, ErrConnectionClosed):
		// Torn down mid-dispatch; nobody is left to tell.
		return
	case err != nil:
		slog.Error("join failed", "conn_id", c.ID, "debate_id", payload.DebateID, "error", err)
		s.sendError(c, "join failed")
		return
	}

	s.sendTo(c, EventActiveUsers, models.ActiveUsersPayload{Users: occupants})
}

func (s *Server) handleLeave(c *Conn) {
	if room := c.currentRoom(); room != "" {
		if s.presence.StopTyping(room, c.Identity.ID) {
			_ = s.hub.BroadcastToRoomExcept(room, c, EventUserStoppedTyping, models.UserPresencePayload{
				UserID:   c.Identity.ID,
				Username: c.Identity.Username,
			})
		}
	}
	s.hub.Leave(c)
}

func (s *Server) handleNewArgument(ctx context.Context, c *Conn, data json.RawMessage) {
	var payload models.NewArgumentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(c, "malformed new_argument payload")
		return
	}
	if payload.Content == "" {
		s.sendError(c, "argument content is required")
		return
	}
	if payload.Side != models.SideSupporting && payload.Side != models.SideOpposing {
		s.sendError(c, "argument side must be supporting or opposing")
		return
	}

	argument, err := s.arguments.Create(ctx, c.Identity, payload)
	switch {
	case errors.Is(err, ErrNotFound):
		s.sendError(c, "debate not found")
		return
	case err != nil:
		slog.Error("create argument failed", "conn_id", c.ID, "error", err)
		s.sendError(c, "could not create argument")
		return
	}

	if err := s.hub.BroadcastToRoom(argument.DebateID, EventArgumentCreated, models.ArgumentEventPayload{Argument: argument}); err != nil {
		slog.Error("broadcast argument", "argument_id", argument.ID, "error", err)
	}

	if payload.ParentID != nil {
		parent, err := s.subjects.FindArgument(ctx, *payload.ParentID)
		if err == nil && parent.AuthorID != c.Identity.ID {
			s.dispatcher.NotifyReply(parent, argument)
		}
	}
}

func (s *Server) handleVote(ctx context.Context, c *Conn, data json.RawMessage) {
	var payload models.VoteArgumentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(c, "malformed vote_argument payload")
		return
	}

	result, err := s.engine.Apply(ctx, payload.ArgumentID, c.Identity.ID, payload.Value)
	switch {
	case errors.Is(err, ErrInvalidVoteValue):
		s.sendError(c, "vote value must be -1, 0, or 1")
		return
	case errors.Is(err, ErrNotFound):
		s.sendError(c, "argument not found")
		return
	case err != nil:
		slog.Error("vote failed", "conn_id", c.ID, "argument_id", payload.ArgumentID, "error", err)
		s.sendError(c, "vote failed")
		return
	}

	if result.Outcome == models.OutcomeUnchanged {
		return
	}

	// The argument's own debate decides the room; the client-supplied
	// debate_id is not trusted for routing.
	argument, err := s.subjects.FindArgument(ctx, payload.ArgumentID)
	if err != nil {
		slog.Error("resolve voted argument", "argument_id", payload.ArgumentID, "error", err)
		return
	}

	_ = s.hub.BroadcastToRoom(argument.DebateID, EventVoteResult, models.VoteResultPayload{
		ArgumentID: payload.ArgumentID,
		Tally:      result.Tally,
		Outcome:    result.Outcome,
		VoterID:    c.Identity.ID,
	})

	if result.Outcome == models.OutcomeFirstVote || result.Outcome == models.OutcomeDirectionChanged {
		if argument.AuthorID != c.Identity.ID {
			s.dispatcher.NotifyVote(argument, c.Identity, result.Outcome)
		}
	}
}

func (s *Server) handleTyping(c *Conn, data json.RawMessage, start bool) {
	var payload models.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(c, "malformed typing payload")
		return
	}
	// Typing only makes sense inside the room the sender occupies.
	if payload.DebateID == "" || payload.DebateID != c.currentRoom() {
		return
	}

	presencePayload := models.UserPresencePayload{
		UserID:   c.Identity.ID,
		Username: c.Identity.Username,
	}

	if start {
		s.presence.StartTyping(payload.DebateID, c.Identity)
		_ = s.hub.BroadcastToRoomExcept(payload.DebateID, c, EventUserTyping, presencePayload)
		return
	}
	if s.presence.StopTyping(payload.DebateID, c.Identity.ID) {
		_ = s.hub.BroadcastToRoomExcept(payload.DebateID, c, EventUserStoppedTyping, presencePayload)
	}
}

func (s *Server) handleSubscribe(c *Conn, data json.RawMessage, subscribe bool) {
	var payload models.SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(c, "malformed subscription payload")
		return
	}
	if !subscribe {
		s.hub.Unsubscribe(c, payload.DebateID)
		return
	}
	if err := s.hub.Subscribe(c, payload.DebateID); errors.Is(err, ErrInvalidIdentifier) {
		s.sendError(c, "invalid debate id")
	}
}

// sendTo delivers a single event to one connection.
func (s *Server) sendTo(c *Conn, event string, payload any) {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		slog.Error("marshal event", "event", event, "error", err)
		return
	}
	if c.enqueue(msg) {
		s.monitor.MessageSent()
	}
}

// sendError reports a handler failure to the offending connection only.
func (s *Server) sendError(c *Conn, message string) {
	c.countError()
	s.monitor.ErrorOccurred()
	s.sendTo(c, EventError, models.ErrorPayload{Message: message})
}
