package signal

import (
	"errors"
	"fmt"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

// eventError is a handler failure reported back to the sender as an
// error event carrying code.
type eventError struct {
	code string
	err  error
}

func (e *eventError) Error() string { return fmt.Sprintf("%s: %v", e.code, e.err) }
func (e *eventError) Unwrap() error { return e.err }

func badPayload(err error) error {
	return &eventError{code: protocol.ErrCodeBadPayload, err: err}
}

var (
	errNotSignedIn  = &eventError{code: protocol.ErrCodeNotSignedIn, err: errors.New("no user announced on this connection")}
	errFromMismatch = &eventError{code: protocol.ErrCodeFromMismatch, err: errors.New("from does not match announced user")}
)

// bind decodes and validates a payload.
func bind(env protocol.Envelope, v interface{ Validate() error }) error {
	if err := env.Bind(v); err != nil {
		return badPayload(err)
	}
	if err := v.Validate(); err != nil {
		return badPayload(err)
	}
	return nil
}

// sender returns the announced user of s, checking from against it.
// An empty from is filled in by the caller with the returned id.
func sender(s *session, from domain.UserID) (domain.UserID, error) {
	uid := s.user()
	if uid == "" {
		return "", errNotSignedIn
	}
	if from != "" && from != uid {
		return "", errFromMismatch
	}
	return uid, nil
}

func (ctl *SignalWSController) handlePing(s *session, _ protocol.Envelope) error {
	ctl.sendJSON(s, protocol.EventPong, nil)
	return nil
}
