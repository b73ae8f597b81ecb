// Package protocol defines the named events exchanged over the signal channel
// and their payload shapes. Both the server and the client speak it.
package protocol

import "github.com/dkeye/Chatline/internal/domain"

// Client -> server.
const (
	EventAddUser           = "add-user"
	EventSignOut           = "signout"
	EventSendMsg           = "send-msg"
	EventOutgoingVoiceCall = "outgoing-voice-call"
	EventOutgoingVideoCall = "outgoing-video-call"
	EventRejectVoiceCall   = "reject-voice-call"
	EventRejectVideoCall   = "reject-video-call"
	EventAcceptIncoming    = "accept-incoming-call"
	EventEndCall           = "end-call"
	EventBusyCall          = "busy-call"
	EventPing              = "ping"
)

// Server -> client.
const (
	EventOnlineUsers       = "online-users"
	EventMsgReceive        = "msg-receive"
	EventIncomingVoiceCall = "incoming-voice-call"
	EventIncomingVideoCall = "incoming-video-call"
	EventVoiceCallRejected = "voice-call-rejected"
	EventVideoCallRejected = "video-call-rejected"
	EventAcceptCall        = "accept-call"
	EventCallEnded         = "call-ended"
	EventCallBusy          = "call-busy"
	EventCallUnavailable   = "call-unavailable"
	EventError             = "error"
	EventPong              = "pong"
)

// Error codes carried by EventError.
const (
	ErrCodeBadPayload   = "bad_payload"
	ErrCodeUnknownEvent = "unknown_event"
	ErrCodeNotSignedIn  = "not_signed_in"
	ErrCodeFromMismatch = "from_mismatch"
	ErrCodeIdentity     = "identity_mismatch"
	ErrCodeRateLimited  = "rate_limited"
)

func OutgoingCallEvent(kind domain.CallKind) string {
	if kind == domain.CallVideo {
		return EventOutgoingVideoCall
	}
	return EventOutgoingVoiceCall
}

func IncomingCallEvent(kind domain.CallKind) string {
	if kind == domain.CallVideo {
		return EventIncomingVideoCall
	}
	return EventIncomingVoiceCall
}

func RejectCallEvent(kind domain.CallKind) string {
	if kind == domain.CallVideo {
		return EventRejectVideoCall
	}
	return EventRejectVoiceCall
}

func CallRejectedEvent(kind domain.CallKind) string {
	if kind == domain.CallVideo {
		return EventVideoCallRejected
	}
	return EventVoiceCallRejected
}
