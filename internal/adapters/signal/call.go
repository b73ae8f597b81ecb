package signal

import (
	"fmt"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

func (ctl *SignalWSController) outgoingCall(kind domain.CallKind) handlerFunc {
	return func(s *session, env protocol.Envelope) error {
		var p protocol.OutgoingCall
		if err := env.Bind(&p); err != nil {
			return badPayload(err)
		}
		if p.CallType == "" {
			p.CallType = kind
		}
		if p.CallType != kind {
			return badPayload(fmt.Errorf("callType %q on %s", p.CallType, env.Event))
		}
		if err := p.Validate(); err != nil {
			return badPayload(err)
		}
		from, err := sender(s, p.From)
		if err != nil {
			return err
		}
		p.From = from

		if !ctl.Orch.Calls.Offer(kind, p) {
			s.log.Info().Str("to", string(p.To)).Str("room", string(p.RoomID)).Msg("callee unavailable")
			ctl.sendJSON(s, protocol.EventCallUnavailable, protocol.CallNotice{To: p.To, RoomID: p.RoomID})
			return nil
		}
		s.log.Info().Str("to", string(p.To)).Str("room", string(p.RoomID)).Str("kind", string(kind)).Msg("ringing")
		return nil
	}
}

func (ctl *SignalWSController) rejectCall(kind domain.CallKind) handlerFunc {
	return func(s *session, env protocol.Envelope) error {
		var p protocol.RejectCall
		if err := bind(env, &p); err != nil {
			return err
		}
		if _, err := sender(s, ""); err != nil {
			return err
		}
		ctl.Orch.Calls.Reject(kind, p.From)
		return nil
	}
}

func (ctl *SignalWSController) handleAcceptCall(s *session, env protocol.Envelope) error {
	var p protocol.AcceptIncoming
	if err := bind(env, &p); err != nil {
		return err
	}
	if _, err := sender(s, ""); err != nil {
		return err
	}
	ctl.Orch.Calls.Accept(p.ID)
	return nil
}

func (ctl *SignalWSController) handleEndCall(s *session, env protocol.Envelope) error {
	var p protocol.CallControl
	if err := bind(env, &p); err != nil {
		return err
	}
	from, err := sender(s, "")
	if err != nil {
		return err
	}
	ctl.Orch.Calls.End(from, p)
	return nil
}

func (ctl *SignalWSController) handleBusyCall(s *session, env protocol.Envelope) error {
	var p protocol.CallControl
	if err := bind(env, &p); err != nil {
		return err
	}
	from, err := sender(s, "")
	if err != nil {
		return err
	}
	ctl.Orch.Calls.Busy(from, p)
	return nil
}
