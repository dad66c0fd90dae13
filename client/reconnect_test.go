// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestGiveUpEndsLost verifies the automaton after a server goes away
// for good: every retry passes through Connecting, and exhausting the
// attempts leaves the client at Lost rather than Disconnected, so
// callers can tell a dead server from a deliberate Close.
func TestGiveUpEndsLost(t *testing.T) {
	oldBase, oldMax := reconnectBaseWait, maxReconnects
	attempts := 3
	reconnectBaseWait, maxReconnects = 10*time.Millisecond, attempts
	defer func() { reconnectBaseWait, maxReconnects = oldBase, oldMax }()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))

	var mu sync.Mutex
	var seen []State
	cl := New("ws"+strings.TrimPrefix(srv.URL, "http")+"/", "token")
	cl.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	if err := cl.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Take the server away entirely so every retry fails.
	srv.CloseClientConnections()
	srv.Close()

	cl.wg.Wait()

	if got := cl.State(); got != StateLost {
		t.Fatalf("state after exhausted retries = %v, want lost", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != StateLost {
		t.Fatalf("final observed state should be lost, saw %v", seen)
	}
	retries := 0
	lostSeen := false
	for _, s := range seen {
		if s == StateLost {
			lostSeen = true
		}
		if lostSeen && s == StateConnecting {
			retries++
		}
	}
	if retries != attempts {
		t.Errorf("expected %d Connecting transitions during retries, saw %d (%v)", attempts, retries, seen)
	}
}
