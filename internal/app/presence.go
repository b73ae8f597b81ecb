package app

import (
	"sync"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Presence is the only write path into the Registry. Every mutation is
// followed, under the same lock, by an online-users broadcast, so each
// connection observes OnlineSets in mutation order and the last one it
// receives is the current one.
type Presence struct {
	mu     sync.Mutex
	reg    *Registry
	policy Policy
}

func NewPresence(reg *Registry, policy Policy) *Presence {
	return &Presence{reg: reg, policy: policy}
}

// Register maps uid to conn (last registration wins) and broadcasts the
// new OnlineSet to everyone, the newcomer included.
func (p *Presence) Register(uid domain.UserID, conn core.SignalConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev := p.reg.set(uid, conn); prev != nil && prev.ID() != conn.ID() {
		log.Info().Str("module", "app.presence").Str("uid", string(uid)).
			Str("stale_conn", string(prev.ID())).Msg("superseded by new connection")
	}
	p.broadcastLocked("")
}

// Switch rebinds conn from prev to uid as one mutation: prev is released
// only while conn still serves it, uid is set, and a single OnlineSet is
// broadcast. An empty prev or prev == uid is a plain Register.
func (p *Presence) Switch(prev, uid domain.UserID, conn core.SignalConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev != "" && prev != uid && p.reg.removeIf(prev, conn.ID()) {
		log.Info().Str("module", "app.presence").Str("from", string(prev)).Str("to", string(uid)).
			Str("conn", string(conn.ID())).Msg("connection switched user")
	}
	p.reg.set(uid, conn)
	p.broadcastLocked("")
}

// Unregister removes uid. It is a no-op (and broadcasts nothing) when
// uid is not present.
func (p *Presence) Unregister(uid domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.reg.remove(uid) {
		return false
	}
	p.broadcastLocked("")
	return true
}

// UnregisterConn is the disconnect path: uid is removed only if it is still
// served by connID, so a superseded connection closing late cannot evict
// the user's current one.
func (p *Presence) UnregisterConn(uid domain.UserID, connID core.ConnectionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.reg.removeIf(uid, connID) {
		return false
	}
	p.broadcastLocked(connID)
	return true
}

// Broadcast sends the current OnlineSet to every registered connection
// except exclude (empty excludes nobody).
func (p *Presence) Broadcast(exclude core.ConnectionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcastLocked(exclude)
}

func (p *Presence) broadcastLocked(exclude core.ConnectionID) {
	online, conns := p.reg.snapshot()
	frame, err := protocol.Encode(protocol.EventOnlineUsers, protocol.OnlineUsers{OnlineUsers: online})
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("encode online users")
		return
	}
	sent := 0
	for _, snap := range conns {
		if snap.Conn.ID() == exclude {
			continue
		}
		if err := deliver(p.policy, snap.Conn, frame); err != nil {
			log.Warn().Err(err).Str("module", "app.presence").Str("uid", string(snap.UID)).Msg("online users not delivered")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.presence").Int("online", len(online)).Int("sent_to", sent).Msg("broadcast")
}

// Online is a read-only view of the OnlineSet.
func (p *Presence) Online() []domain.UserID {
	return p.reg.Online()
}
