package signal

import (
	"errors"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

var errIdentityMismatch = &eventError{
	code: protocol.ErrCodeIdentity,
	err:  errors.New("announced user differs from session identity"),
}

// bindUserID accepts both a bare JSON string and {"id": "..."}.
func bindUserID(env protocol.Envelope) (domain.UserID, error) {
	var uid domain.UserID
	if err := env.Bind(&uid); err != nil {
		var obj struct {
			ID domain.UserID `json:"id"`
		}
		if err := env.Bind(&obj); err != nil {
			return "", badPayload(err)
		}
		uid = obj.ID
	}
	if err := uid.Validate(); err != nil {
		return "", badPayload(err)
	}
	return uid, nil
}

func (ctl *SignalWSController) handleAddUser(s *session, env protocol.Envelope) error {
	uid, err := bindUserID(env)
	if err != nil {
		return err
	}
	if s.identity != "" && uid != s.identity {
		return errIdentityMismatch
	}
	prev := s.swapUser(uid)
	ctl.Orch.Announce(prev, uid, s.conn)
	s.log.Info().Str("uid", string(uid)).Msg("user announced")
	return nil
}

func (ctl *SignalWSController) handleSignOut(s *session, env protocol.Envelope) error {
	current := s.user()
	uid := current
	if len(env.Data) > 0 {
		var err error
		if uid, err = bindUserID(env); err != nil {
			return err
		}
	}
	if current == "" {
		return errNotSignedIn
	}
	if uid != current {
		return errFromMismatch
	}
	s.swapUser("")
	ctl.Orch.SignOut(uid)
	s.log.Info().Str("uid", string(uid)).Msg("signed out")
	return nil
}
