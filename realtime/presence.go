// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"sync"
	"time"

	"github.com/danielhkuo/openfloor/models"
)

// Presence tracks which identities are online and who is typing where.
// An identity is online iff it has at least one live connection;
// multiple tabs map to multiple connections under the same identity.
type Presence struct {
	mu     sync.Mutex
	online map[string]map[*Conn]struct{} // identity id -> live connections
	typing map[string]*time.Timer        // room + identity -> expiry timer

	typingExpiry time.Duration

	// onTypingExpired fires when a typing flag self-expires (not on
	// explicit typing_end). Set once at wiring time, before any
	// connection registers.
	onTypingExpired func(debateID string, identity models.Identity)
}

func NewPresence(typingExpiry time.Duration) *Presence {
	return &Presence{
		online:       make(map[string]map[*Conn]struct{}),
		typing:       make(map[string]*time.Timer),
		typingExpiry: typingExpiry,
	}
}

// Register attributes a connection to its identity. Reports whether
// this was the identity's first connection, i.e. it just came online.
func (p *Presence) Register(c *Conn) (cameOnline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.online[c.Identity.ID]
	if !ok {
		conns = make(map[*Conn]struct{})
		p.online[c.Identity.ID] = conns
	}
	conns[c] = struct{}{}
	return !ok
}

// Unregister removes a connection. Reports whether the identity went
// offline (last connection closed). At most one call per identity
// returns true between registrations.
func (p *Presence) Unregister(c *Conn) (wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.online[c.Identity.ID]
	if !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(p.online, c.Identity.ID)
		return true
	}
	return false
}

// Online reports whether the identity has at least one live connection.
func (p *Presence) Online(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online[identityID]) > 0
}

// OnlineIDs returns the identities currently online, in no particular order.
func (p *Presence) OnlineIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	return ids
}

// ConnsFor returns every live connection attributed to an identity.
func (p *Presence) ConnsFor(identityID string) []*Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := make([]*Conn, 0, len(p.online[identityID]))
	for c := range p.online[identityID] {
		conns = append(conns, c)
	}
	return conns
}

func typingKey(debateID, identityID string) string {
	return debateID + "\x00" + identityID
}

// StartTyping sets the (room, identity) typing flag and arms its
// expiry. A second start before expiry replaces the pending timer, so
// there is never more than one timer per pair.
func (p *Presence) StartTyping(debateID string, identity models.Identity) {
	key := typingKey(debateID, identity.ID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.typing[key]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(p.typingExpiry, func() {
		p.mu.Lock()
		// A newer typing_start may have replaced this timer while the
		// callback was in flight; only the current owner may clear.
		if p.typing[key] != timer {
			p.mu.Unlock()
			return
		}
		delete(p.typing, key)
		callback := p.onTypingExpired
		p.mu.Unlock()

		if callback != nil {
			callback(debateID, identity)
		}
	})
	p.typing[key] = timer
}

// StopTyping clears the flag explicitly. Reports whether the flag was
// set, so callers only broadcast a stop that follows a start.
func (p *Presence) StopTyping(debateID, identityID string) bool {
	key := typingKey(debateID, identityID)

	p.mu.Lock()
	defer p.mu.Unlock()

	timer, ok := p.typing[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(p.typing, key)
	return true
}

// Typing reports whether the flag is currently set.
func (p *Presence) Typing(debateID, identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.typing[typingKey(debateID, identityID)]
	return ok
}
