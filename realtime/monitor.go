// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// latencyWeight is the EWMA coefficient for round-trip samples. New
// samples get 20% weight, matching a window of roughly eight probes.
const latencyWeight = 0.2

// probeSampleSize caps how many connections get a latency probe per
// tick. The stale scan still walks every connection.
const probeSampleSize = 16

// roomStats is one room's occupancy as the monitor last saw it.
type roomStats struct {
	Current int `json:"current"`
	Peak    int `json:"peak"`
}

// Snapshot is a point-in-time view of server health, shaped for the
// stats endpoint.
type Snapshot struct {
	Uptime             string               `json:"uptime"`
	TotalConnections   int64                `json:"total_connections"`
	CurrentConnections int                  `json:"current_connections"`
	MessagesSent       int64                `json:"messages_sent"`
	MessagesReceived   int64                `json:"messages_received"`
	Errors             int64                `json:"errors"`
	AvgLatencyMillis   float64              `json:"avg_latency_ms"`
	Rooms              map[string]roomStats `json:"rooms"`
	RoomsSwept         int64                `json:"rooms_swept"`
}

// Monitor aggregates counters from every layer of the realtime server.
// All methods are safe for concurrent use; recording is cheap enough
// to call on every message.
type Monitor struct {
	mu sync.Mutex

	startedAt time.Time

	totalConns   int64
	currentConns int
	sent         int64
	received     int64
	errs         int64

	avgLatency   float64 // milliseconds, EWMA
	latencySeen  bool
	rooms        map[string]*roomStats
	sweptRooms   int64

	staleTimeout  time.Duration
	probeInterval time.Duration
	sweepInterval time.Duration

	// Injected at wiring time so the monitor never imports the hub.
	connsSnapshot func() []*Conn
	sweepRooms    func(now time.Time) int
}

func NewMonitor(staleTimeout, probeInterval, sweepInterval time.Duration) *Monitor {
	return &Monitor{
		startedAt:     time.Now(),
		rooms:         make(map[string]*roomStats),
		staleTimeout:  staleTimeout,
		probeInterval: probeInterval,
		sweepInterval: sweepInterval,
	}
}

// Attach wires the monitor to its connection and room providers. Must
// run before Run.
func (m *Monitor) Attach(connsSnapshot func() []*Conn, sweepRooms func(now time.Time) int) {
	m.connsSnapshot = connsSnapshot
	m.sweepRooms = sweepRooms
}

func (m *Monitor) ConnOpened() {
	m.mu.Lock()
	m.totalConns++
	m.currentConns++
	m.mu.Unlock()
}

func (m *Monitor) ConnClosed() {
	m.mu.Lock()
	m.currentConns--
	m.mu.Unlock()
}

func (m *Monitor) MessageSent() {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
}

func (m *Monitor) MessageReceived() {
	m.mu.Lock()
	m.received++
	m.mu.Unlock()
}

func (m *Monitor) ErrorOccurred() {
	m.mu.Lock()
	m.errs++
	m.mu.Unlock()
}

// SetRoomOccupancy records a room's current size and bumps its peak.
func (m *Monitor) SetRoomOccupancy(name string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.rooms[name]
	if !ok {
		stats = &roomStats{}
		m.rooms[name] = stats
	}
	stats.Current = size
	if size > stats.Peak {
		stats.Peak = size
	}
}

// RoomSwept drops a room's stats after the hub retires it.
func (m *Monitor) RoomSwept(name string) {
	m.mu.Lock()
	delete(m.rooms, name)
	m.sweptRooms++
	m.mu.Unlock()
}

// RecordLatency folds one round-trip sample into the moving average.
func (m *Monitor) RecordLatency(rtt time.Duration) {
	millis := float64(rtt.Microseconds()) / 1000
	m.mu.Lock()
	if !m.latencySeen {
		m.avgLatency = millis
		m.latencySeen = true
	} else {
		m.avgLatency = m.avgLatency*(1-latencyWeight) + millis*latencyWeight
	}
	m.mu.Unlock()
}

// Snapshot copies the current counters for the stats endpoint.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := make(map[string]roomStats, len(m.rooms))
	for name, stats := range m.rooms {
		rooms[name] = *stats
	}

	return Snapshot{
		Uptime:             time.Since(m.startedAt).Round(time.Second).String(),
		TotalConnections:   m.totalConns,
		CurrentConnections: m.currentConns,
		MessagesSent:       m.sent,
		MessagesReceived:   m.received,
		Errors:             m.errs,
		AvgLatencyMillis:   m.avgLatency,
		Rooms:              rooms,
		RoomsSwept:         m.sweptRooms,
	}
}

// Run drives the periodic work: latency probes with a stale-connection
// scan on one ticker, empty-room sweeps on another. Blocks until the
// context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	probe := time.NewTicker(m.probeInterval)
	sweep := time.NewTicker(m.sweepInterval)
	defer probe.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-probe.C:
			m.probeConnections()
		case now := <-sweep.C:
			if m.sweepRooms != nil {
				if swept := m.sweepRooms(now); swept > 0 {
					slog.Info("swept empty rooms", "count", swept)
				}
			}
		}
	}
}

// probeConnections force-closes every connection that has shown no
// activity past the stale timeout, then pings a bounded random sample
// of the rest. The websocket read deadline usually wins the staleness
// race; the scan catches connections whose transport died without an
// error.
func (m *Monitor) probeConnections() {
	if m.connsSnapshot == nil {
		return
	}
	conns := m.connsSnapshot()
	cutoff := time.Now().Add(-m.staleTimeout)

	fresh := conns[:0]
	for _, c := range conns {
		if c.lastActivity().Before(cutoff) {
			slog.Warn("closing stale connection",
				"conn_id", c.ID, "user_id", c.Identity.ID,
				"idle", time.Since(c.lastActivity()).Round(time.Second))
			c.Close()
			continue
		}
		fresh = append(fresh, c)
	}

	for _, c := range probeSample(fresh, probeSampleSize) {
		c.Probe()
	}
}

// probeSample picks up to n connections uniformly at random so probe
// cost stays bounded no matter how many clients are connected.
func probeSample(conns []*Conn, n int) []*Conn {
	if len(conns) <= n {
		return conns
	}
	rand.Shuffle(len(conns), func(i, j int) {
		conns[i], conns[j] = conns[j], conns[i]
	})
	return conns[:n]
}
