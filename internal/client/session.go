// Package client is the client half of the relay: a websocket client and
// the call state machine that turns signaling events into call UI states.
package client

import (
	"time"

	"github.com/dkeye/Chatline/internal/domain"
)

type State int

const (
	Idle State = iota
	Outgoing
	Incoming
	Connected
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Connected:
		return "connected"
	case Ended:
		return "ended"
	}
	return "unknown"
}

type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Outcome says why a call reached Ended.
type Outcome string

const (
	OutcomeNone         Outcome = ""
	OutcomeRejected     Outcome = "rejected"
	OutcomeHungUp       Outcome = "hung-up"
	OutcomeRemoteHangup Outcome = "remote-hung-up"
	OutcomeNoAnswer     Outcome = "no-answer"
	OutcomeBusy         Outcome = "busy"
	OutcomeUnavailable  Outcome = "unavailable"
)

// Session is the client's view of one call attempt.
type Session struct {
	Direction Direction
	Kind      domain.CallKind
	Peer      domain.Profile
	RoomID    domain.RoomID
	StartedAt time.Time
}

type Transition struct {
	From    State
	To      State
	Session Session
	Outcome Outcome
}
