package app

import (
	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Router forwards named events to a user's current connection.
// Delivery is best effort: an offline target or a failing transport
// yields delivered=false and nothing else happens.
type Router struct {
	reg    *Registry
	policy Policy
}

func NewRouter(reg *Registry, policy Policy) *Router {
	return &Router{reg: reg, policy: policy}
}

// Relay encodes (event, payload) and hands it to target's connection.
// A nil payload sends the bare event.
func (r *Router) Relay(event string, target domain.UserID, payload any) bool {
	conn, ok := r.reg.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("event", event).Str("to", string(target)).Msg("target offline")
		return false
	}
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("event", event).Msg("encode")
		return false
	}
	return r.send(event, target, conn, frame)
}

func (r *Router) send(event string, target domain.UserID, conn core.SignalConnection, frame core.Frame) bool {
	if err := deliver(r.policy, conn, frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("event", event).Str("to", string(target)).Msg("not delivered")
		return false
	}
	log.Debug().Str("module", "app.relay").Str("event", event).Str("to", string(target)).Str("conn", string(conn.ID())).Msg("relayed")
	return true
}

// SendMessage forwards an already persisted message to its recipient.
func (r *Router) SendMessage(from, to domain.UserID, message []byte) bool {
	return r.Relay(protocol.EventMsgReceive, to, protocol.MsgReceive{From: from, Message: message})
}
