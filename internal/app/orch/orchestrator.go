package orch

import (
	"github.com/dkeye/Chatline/internal/app"
	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the presence state of one server instance and wires
// the registry into the broadcaster, the router and the call coordinator.
type Orchestrator struct {
	Registry *app.Registry
	Presence *app.Presence
	Router   *app.Router
	Calls    *app.CallCoordinator
}

func New(policy app.Policy) *Orchestrator {
	reg := app.NewRegistry()
	router := app.NewRouter(reg, policy)
	return &Orchestrator{
		Registry: reg,
		Presence: app.NewPresence(reg, policy),
		Router:   router,
		Calls:    app.NewCallCoordinator(router),
	}
}

// Announce binds uid to conn. prev is the id the connection announced
// before, released first when it differs.
func (o *Orchestrator) Announce(prev, uid domain.UserID, conn core.SignalConnection) {
	o.Presence.Switch(prev, uid, conn)
}

// SignOut is the explicit sign-out; idempotent.
func (o *Orchestrator) SignOut(uid domain.UserID) {
	if !o.Presence.Unregister(uid) {
		log.Debug().Str("module", "app.orch").Str("uid", string(uid)).Msg("signout: already offline")
	}
}

// Disconnect runs when the transport reports the connection gone.
func (o *Orchestrator) Disconnect(uid domain.UserID, conn core.SignalConnection) {
	if uid == "" {
		return
	}
	o.Presence.UnregisterConn(uid, conn.ID())
}

// Shutdown closes every registered connection; their disconnect paths
// empty the registry.
func (o *Orchestrator) Shutdown() {
	for _, uid := range o.Registry.Online() {
		if conn, ok := o.Registry.Lookup(uid); ok {
			conn.Close()
		}
	}
	log.Info().Str("module", "app.orch").Msg("presence shut down")
}
