package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/rs/zerolog/log"
)

type BackpressureAction int

const (
	DropEvent BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(conn core.SignalConnection) BackpressureAction
}

// SimplePolicy disconnects slow connections; their disconnect path
// unregisters the user.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SignalConnection) BackpressureAction {
	return Disconnect
}

// DropPolicy drops the event and keeps the connection.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.SignalConnection) BackpressureAction {
	return DropEvent
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "disconnect":
		return SimplePolicy{}, nil
	case "drop":
		return DropPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}

// deliver hands frame to conn without blocking. Any error means the event
// was not delivered; there is no retry.
func deliver(policy Policy, conn core.SignalConnection, frame core.Frame) error {
	err := conn.TrySend(frame)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrBackpressure) && policy != nil {
		switch policy.OnBackPressure(conn) {
		case Disconnect:
			log.Warn().Str("module", "app.policy").Str("conn", string(conn.ID())).Msg("slow connection, disconnecting")
			conn.Close()
		case DropEvent:
			log.Warn().Str("module", "app.policy").Str("conn", string(conn.ID())).Msg("slow connection, event dropped")
		}
	}
	return err
}
