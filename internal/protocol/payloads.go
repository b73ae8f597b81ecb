package protocol

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/dkeye/Chatline/internal/domain"
)

var ErrMissingField = errors.New("missing required field")

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

type OnlineUsers struct {
	OnlineUsers []domain.UserID `json:"onlineUsers"`
}

type SendMsg struct {
	To      domain.UserID   `json:"to"`
	From    domain.UserID   `json:"from"`
	Message json.RawMessage `json:"message"`
}

func (p SendMsg) Validate() error {
	if p.To == "" {
		return missing("to")
	}
	if len(p.Message) == 0 || string(p.Message) == "null" {
		return missing("message")
	}
	return nil
}

type MsgReceive struct {
	From    domain.UserID   `json:"from"`
	Message json.RawMessage `json:"message"`
}

type OutgoingCall struct {
	To       domain.UserID   `json:"to"`
	From     domain.UserID   `json:"from"`
	RoomID   domain.RoomID   `json:"roomId"`
	CallType domain.CallKind `json:"callType"`
	Profile  *domain.Profile `json:"profile,omitempty"`
}

func (p OutgoingCall) Validate() error {
	if p.To == "" {
		return missing("to")
	}
	if p.RoomID == "" {
		return missing("roomId")
	}
	if _, err := domain.ParseCallKind(string(p.CallType)); err != nil {
		return err
	}
	return nil
}

type IncomingCall struct {
	From     domain.UserID   `json:"from"`
	RoomID   domain.RoomID   `json:"roomId"`
	CallType domain.CallKind `json:"callType"`
	Profile  *domain.Profile `json:"profile,omitempty"`
}

// RejectCall names the caller to notify; the field is called "from"
// because it refers to the origin of the rejected call.
type RejectCall struct {
	From domain.UserID `json:"from"`
}

func (p RejectCall) Validate() error {
	if p.From == "" {
		return missing("from")
	}
	return nil
}

type AcceptIncoming struct {
	ID domain.UserID `json:"id"`
}

func (p AcceptIncoming) Validate() error {
	if p.ID == "" {
		return missing("id")
	}
	return nil
}

// CallControl is the payload of end-call and busy-call.
type CallControl struct {
	To     domain.UserID `json:"to"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

func (p CallControl) Validate() error {
	if p.To == "" {
		return missing("to")
	}
	return nil
}

// CallNotice is the payload of call-ended, call-busy and call-unavailable.
type CallNotice struct {
	From   domain.UserID `json:"from,omitempty"`
	To     domain.UserID `json:"to,omitempty"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

type Error struct {
	Error string `json:"error"`
	Event string `json:"event,omitempty"`
}
