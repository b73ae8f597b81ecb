package signal

import "github.com/dkeye/Chatline/internal/protocol"

// handleSendMsg forwards a message the client has already persisted
// through the REST collaborator. Nothing is reported back either way.
func (ctl *SignalWSController) handleSendMsg(s *session, env protocol.Envelope) error {
	var p protocol.SendMsg
	if err := bind(env, &p); err != nil {
		return err
	}
	from, err := sender(s, p.From)
	if err != nil {
		return err
	}
	delivered := ctl.Orch.Router.SendMessage(from, p.To, p.Message)
	s.log.Debug().Str("to", string(p.To)).Bool("delivered", delivered).Msg("send-msg")
	return nil
}
