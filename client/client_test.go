// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/openfloor/client"
	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/realtime"
	"github.com/danielhkuo/openfloor/store"
	"github.com/danielhkuo/openfloor/testutil"
	"github.com/google/uuid"
)

type stubArguments struct{}

func (stubArguments) Create(_ context.Context, author models.Identity, req models.NewArgumentPayload) (models.Argument, error) {
	return models.Argument{
		ID:       uuid.NewString(),
		DebateID: req.DebateID,
		AuthorID: author.ID,
		Author:   author.Username,
		Content:  req.Content,
		Side:     req.Side,
	}, nil
}

func startServer(t *testing.T) (*httptest.Server, *realtime.Server, *sql.DB) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	cfg := testutil.GetTestConfig()
	// Keep server-side typing expiry out of these tests.
	cfg.TypingExpiry = time.Minute

	srv := realtime.NewServer(cfg, st, st, st, stubArguments{})
	ts := httptest.NewServer(http.HandlerFunc(srv.ServeWS))
	t.Cleanup(ts.Close)

	return ts, srv, conn
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
}

func waitState(t *testing.T, states <-chan client.State, want client.State, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("state %v not reached within %v", want, timeout)
		}
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	cl := client.New("ws://127.0.0.1:1/", "token")
	if err := cl.Vote("d1", "a1", 1); !errors.Is(err, client.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectJoinReceive(t *testing.T) {
	ts, _, conn := startServer(t)

	alice, token := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	active := make(chan models.ActiveUsersPayload, 4)
	cl := client.New(wsURL(ts), token)
	cl.On("active_users", func(data json.RawMessage) {
		var payload models.ActiveUsersPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			active <- payload
		}
	})
	t.Cleanup(cl.Close)

	if err := cl.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := cl.State(); got != client.StateConnected {
		t.Fatalf("state after connect = %v, want connected", got)
	}
	if err := cl.Connect(); !errors.Is(err, client.ErrAlreadyActive) {
		t.Errorf("double connect should fail, got %v", err)
	}

	if err := cl.Join(debateID); err != nil {
		t.Fatalf("join: %v", err)
	}

	select {
	case payload := <-active:
		if len(payload.Users) != 0 {
			t.Errorf("expected empty room, got %v", payload.Users)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no active_users reply")
	}
}

func TestReconnectRestoresRoom(t *testing.T) {
	ts, srv, conn := startServer(t)

	alice, token := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	states := make(chan client.State, 16)
	active := make(chan models.ActiveUsersPayload, 4)

	cl := client.New(wsURL(ts), token)
	cl.OnStateChange(func(s client.State) { states <- s })
	cl.On("active_users", func(data json.RawMessage) {
		var payload models.ActiveUsersPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			active <- payload
		}
	})
	t.Cleanup(cl.Close)

	if err := cl.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := cl.Join(debateID); err != nil {
		t.Fatalf("join: %v", err)
	}

	select {
	case <-active:
	case <-time.After(2 * time.Second):
		t.Fatal("no active_users after first join")
	}

	// Kill every server-side connection; the client should notice,
	// reconnect, and re-join on its own.
	srv.Shutdown("restarting")

	waitState(t, states, client.StateLost, 2*time.Second)
	waitState(t, states, client.StateConnected, 5*time.Second)

	select {
	case <-active:
		// Rejoin produced a fresh room snapshot.
	case <-time.After(3 * time.Second):
		t.Fatal("no active_users after reconnect, room was not restored")
	}
}

func TestCloseIsFinal(t *testing.T) {
	ts, _, conn := startServer(t)
	_, token := testutil.CreateTestAccount(t, conn, "alice")

	cl := client.New(wsURL(ts), token)
	if err := cl.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	cl.Close()
	if got := cl.State(); got != client.StateDisconnected {
		t.Fatalf("state after close = %v, want disconnected", got)
	}

	// No reconnect attempt should revive the client.
	time.Sleep(1500 * time.Millisecond)
	if got := cl.State(); got != client.StateDisconnected {
		t.Errorf("client revived after close, state = %v", got)
	}
}

func TestTypingIsEdgeTriggered(t *testing.T) {
	ts, _, conn := startServer(t)

	alice, aliceToken := testutil.CreateTestAccount(t, conn, "alice")
	_, bobToken := testutil.CreateTestAccount(t, conn, "bob")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	typingEvents := make(chan string, 16)
	observer := client.New(wsURL(ts), aliceToken)
	observer.On("user_typing", func(json.RawMessage) { typingEvents <- "start" })
	observer.On("user_stopped_typing", func(json.RawMessage) { typingEvents <- "stop" })
	t.Cleanup(observer.Close)
	if err := observer.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := observer.Join(debateID); err != nil {
		t.Fatal(err)
	}

	typist := client.New(wsURL(ts), bobToken)
	t.Cleanup(typist.Close)
	if err := typist.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := typist.Join(debateID); err != nil {
		t.Fatal(err)
	}

	// Three keystrokes, one start on the wire.
	for i := 0; i < 3; i++ {
		if err := typist.Typing(debateID); err != nil {
			t.Fatalf("typing: %v", err)
		}
	}
	if err := typist.StopTyping(debateID); err != nil {
		t.Fatalf("stop typing: %v", err)
	}
	// A second stop without a start in between sends nothing.
	if err := typist.StopTyping(debateID); err != nil {
		t.Fatalf("redundant stop typing: %v", err)
	}

	var got []string
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-typingEvents:
			got = append(got, e)
		case <-deadline:
			t.Fatalf("expected start,stop; got %v", got)
		}
	}
	if got[0] != "start" || got[1] != "stop" {
		t.Errorf("expected [start stop], got %v", got)
	}

	select {
	case e := <-typingEvents:
		t.Errorf("unexpected extra typing event %q", e)
	case <-time.After(300 * time.Millisecond):
	}
}
