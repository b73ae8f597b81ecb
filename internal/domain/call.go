package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownCallKind = errors.New("unknown call kind")

type CallKind string

const (
	CallVoice CallKind = "voice"
	CallVideo CallKind = "video"
)

func ParseCallKind(s string) (CallKind, error) {
	switch CallKind(s) {
	case CallVoice, CallVideo:
		return CallKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCallKind, s)
}

// RoomID groups both parties of a call inside the media collaborator.
// It is chosen by the caller and opaque to the relay.
type RoomID string
