package app

import (
	"slices"
	"sync"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps a user to the connection that announced it last.
// Mutation is unexported: Presence is the only writer so that every
// change is followed by an online-users broadcast.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.UserID]core.SignalConnection),
	}
}

// set inserts or overwrites; the previous connection, if any, is returned
// and simply stops being reachable.
func (r *Registry) set(uid domain.UserID, conn core.SignalConnection) core.SignalConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[uid]
	r.conns[uid] = conn
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Str("conn", string(conn.ID())).Msg("registered")
	return prev
}

func (r *Registry) remove(uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[uid]; !ok {
		return false
	}
	delete(r.conns, uid)
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Msg("unregistered")
	return true
}

// removeIf deletes the mapping only while it still points at connID.
func (r *Registry) removeIf(uid domain.UserID, connID core.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[uid]
	if !ok || conn.ID() != connID {
		return false
	}
	delete(r.conns, uid)
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Str("conn", string(connID)).Msg("unregistered connection")
	return true
}

func (r *Registry) Lookup(uid domain.UserID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[uid]
	return conn, ok
}

// LookupID returns the connection id for uid; absent is the normal
// outcome for an offline user.
func (r *Registry) LookupID(uid domain.UserID) (core.ConnectionID, bool) {
	conn, ok := r.Lookup(uid)
	if !ok {
		return "", false
	}
	return conn.ID(), true
}

// Online returns the sorted OnlineSet.
func (r *Registry) Online() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

func (r *Registry) onlineLocked() []domain.UserID {
	out := make([]domain.UserID, 0, len(r.conns))
	for uid := range r.conns {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

type regSnap struct {
	UID  domain.UserID
	Conn core.SignalConnection
}

// snapshot returns the OnlineSet together with the connections it maps to,
// both read under the same lock.
func (r *Registry) snapshot() ([]domain.UserID, []regSnap) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.conns))
	for uid, conn := range r.conns {
		out = append(out, regSnap{UID: uid, Conn: conn})
	}
	return r.onlineLocked(), out
}
