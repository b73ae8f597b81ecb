package app

import (
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

// CallCoordinator is the server half of call setup. It keeps no session
// table: each signal is translated and relayed to the other party, and the
// clients own the call state.
type CallCoordinator struct {
	router *Router
}

func NewCallCoordinator(router *Router) *CallCoordinator {
	return &CallCoordinator{router: router}
}

// Offer rings the callee. false means the callee is offline.
func (c *CallCoordinator) Offer(kind domain.CallKind, call protocol.OutgoingCall) bool {
	return c.router.Relay(protocol.IncomingCallEvent(kind), call.To, protocol.IncomingCall{
		From:     call.From,
		RoomID:   call.RoomID,
		CallType: call.CallType,
		Profile:  call.Profile,
	})
}

// Reject tells the caller the callee declined.
func (c *CallCoordinator) Reject(kind domain.CallKind, caller domain.UserID) bool {
	return c.router.Relay(protocol.CallRejectedEvent(kind), caller, nil)
}

// Accept tells the caller to proceed to media setup.
func (c *CallCoordinator) Accept(caller domain.UserID) bool {
	return c.router.Relay(protocol.EventAcceptCall, caller, nil)
}

// End terminates the call on the peer's side (hang up or cancel).
func (c *CallCoordinator) End(from domain.UserID, ctl protocol.CallControl) bool {
	return c.router.Relay(protocol.EventCallEnded, ctl.To, protocol.CallNotice{From: from, RoomID: ctl.RoomID})
}

// Busy tells the caller the callee is already in a call.
func (c *CallCoordinator) Busy(from domain.UserID, ctl protocol.CallControl) bool {
	return c.router.Relay(protocol.EventCallBusy, ctl.To, protocol.CallNotice{From: from, RoomID: ctl.RoomID})
}
