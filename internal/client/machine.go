package client

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultCallTimeout = 30 * time.Second

var (
	ErrBusy     = errors.New("a call is already in progress")
	ErrNoCall   = errors.New("no call to act on")
	ErrSelfCall = errors.New("cannot call yourself")
)

// Emitter sends a named event toward the server without blocking.
type Emitter interface {
	Emit(event string, payload any) error
}

// Machine tracks at most one call at a time. Ended is transient: every
// transition into it is immediately followed by one back to Idle.
type Machine struct {
	self    domain.Profile
	emit    Emitter
	timeout time.Duration
	now     func() time.Time
	newRoom func() domain.RoomID

	mu        sync.Mutex
	state     State
	session   *Session
	gen       uint64
	timer     *time.Timer
	observers []func(Transition)

	// pending holds committed transitions not yet handed to observers;
	// notifying is set while one goroutine drains it.
	pending   []Transition
	notifying bool
}

// NewMachine builds an idle machine. Outgoing and Incoming end with
// OutcomeNoAnswer after timeout.
func NewMachine(self domain.Profile, emit Emitter, timeout time.Duration) *Machine {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Machine{
		self:    self,
		emit:    emit,
		timeout: timeout,
		now:     time.Now,
		newRoom: func() domain.RoomID { return domain.RoomID(uuid.NewString()) },
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// OnTransition registers fn for every state change. fn runs outside the
// machine lock and may call back into the machine. Observers see
// transitions in the order they were committed.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// do runs fn under the lock and queues its transitions. The first caller
// to find the queue idle drains it, so a concurrent or reentrant caller
// never overtakes transitions committed before its own.
func (m *Machine) do(fn func() ([]Transition, error)) error {
	m.mu.Lock()
	trs, err := fn()
	m.pending = append(m.pending, trs...)
	if m.notifying || len(m.pending) == 0 {
		m.mu.Unlock()
		return err
	}
	m.notifying = true
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil
		obs := slices.Clone(m.observers)
		m.mu.Unlock()
		m.notify(batch, obs)
		m.mu.Lock()
	}
	m.notifying = false
	m.mu.Unlock()
	return err
}

func (m *Machine) notify(trs []Transition, obs []func(Transition)) {
	for _, t := range trs {
		log.Debug().Str("module", "client.call").Stringer("from", t.From).Stringer("to", t.To).
			Str("outcome", string(t.Outcome)).Str("room", string(t.Session.RoomID)).Msg("transition")
		for _, o := range obs {
			o(t)
		}
	}
}

func (m *Machine) moveLocked(to State, outcome Outcome) Transition {
	t := Transition{From: m.state, To: to, Outcome: outcome}
	if m.session != nil {
		t.Session = *m.session
	}
	m.state = to
	return t
}

func (m *Machine) beginLocked(to State, s Session) Transition {
	m.gen++
	m.session = &s
	t := m.moveLocked(to, OutcomeNone)
	gen := m.gen
	m.timer = time.AfterFunc(m.timeout, func() { m.expire(gen) })
	return t
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) endLocked(outcome Outcome) []Transition {
	m.stopTimerLocked()
	ended := m.moveLocked(Ended, outcome)
	idle := m.moveLocked(Idle, outcome)
	m.session = nil
	m.gen++
	return []Transition{ended, idle}
}

func (m *Machine) endCallEventLocked() error {
	return m.emit.Emit(protocol.EventEndCall, protocol.CallControl{To: m.session.Peer.ID, RoomID: m.session.RoomID})
}

// Call places a call to peer. Entering Outgoing is optimistic; the server
// answers call-unavailable if peer is offline.
func (m *Machine) Call(kind domain.CallKind, peer domain.Profile) (Session, error) {
	var out Session
	err := m.do(func() ([]Transition, error) {
		if m.state != Idle {
			return nil, ErrBusy
		}
		if peer.ID == m.self.ID {
			return nil, ErrSelfCall
		}
		if err := peer.ID.Validate(); err != nil {
			return nil, err
		}
		s := Session{
			Direction: DirectionOutgoing,
			Kind:      kind,
			Peer:      peer,
			RoomID:    m.newRoom(),
			StartedAt: m.now(),
		}
		self := m.self
		err := m.emit.Emit(protocol.OutgoingCallEvent(kind), protocol.OutgoingCall{
			To:       peer.ID,
			From:     m.self.ID,
			RoomID:   s.RoomID,
			CallType: kind,
			Profile:  &self,
		})
		if err != nil {
			return nil, fmt.Errorf("place call: %w", err)
		}
		out = s
		return []Transition{m.beginLocked(Outgoing, s)}, nil
	})
	return out, err
}

// Accept answers the ringing call.
func (m *Machine) Accept() error {
	return m.do(func() ([]Transition, error) {
		if m.state != Incoming {
			return nil, ErrNoCall
		}
		if err := m.emit.Emit(protocol.EventAcceptIncoming, protocol.AcceptIncoming{ID: m.session.Peer.ID}); err != nil {
			return nil, fmt.Errorf("accept call: %w", err)
		}
		m.stopTimerLocked()
		return []Transition{m.moveLocked(Connected, OutcomeNone)}, nil
	})
}

// Reject declines a ringing call, or cancels an outgoing one.
func (m *Machine) Reject() error {
	return m.do(func() ([]Transition, error) {
		switch m.state {
		case Incoming:
			return m.rejectLocked(), nil
		case Outgoing:
			m.warnEmit(m.endCallEventLocked(), protocol.EventEndCall)
			return m.endLocked(OutcomeHungUp), nil
		}
		return nil, ErrNoCall
	})
}

// Hangup ends the current call whatever its phase.
func (m *Machine) Hangup() error {
	return m.do(func() ([]Transition, error) {
		switch m.state {
		case Incoming:
			return m.rejectLocked(), nil
		case Outgoing, Connected:
			m.warnEmit(m.endCallEventLocked(), protocol.EventEndCall)
			return m.endLocked(OutcomeHungUp), nil
		}
		return nil, ErrNoCall
	})
}

func (m *Machine) rejectLocked() []Transition {
	ev := protocol.RejectCallEvent(m.session.Kind)
	m.warnEmit(m.emit.Emit(ev, protocol.RejectCall{From: m.session.Peer.ID}), ev)
	return m.endLocked(OutcomeRejected)
}

// Local state always ends even when the peer cannot be told.
func (m *Machine) warnEmit(err error, event string) {
	if err != nil {
		log.Warn().Err(err).Str("module", "client.call").Str("event", event).Msg("peer not notified")
	}
}

// HandleIncomingCall rings when idle and answers busy-call otherwise.
func (m *Machine) HandleIncomingCall(kind domain.CallKind, p protocol.IncomingCall) {
	_ = m.do(func() ([]Transition, error) {
		if m.state != Idle {
			if m.session != nil && m.session.RoomID == p.RoomID {
				return nil, nil
			}
			m.warnEmit(m.emit.Emit(protocol.EventBusyCall, protocol.CallControl{To: p.From, RoomID: p.RoomID}), protocol.EventBusyCall)
			return nil, nil
		}
		peer := domain.Profile{ID: p.From}
		if p.Profile != nil && p.Profile.ID == p.From {
			peer = *p.Profile
		}
		return []Transition{m.beginLocked(Incoming, Session{
			Direction: DirectionIncoming,
			Kind:      kind,
			Peer:      peer,
			RoomID:    p.RoomID,
			StartedAt: m.now(),
		})}, nil
	})
}

// HandleAccepted moves a ringing outgoing call to Connected.
func (m *Machine) HandleAccepted() {
	_ = m.do(func() ([]Transition, error) {
		if m.state != Outgoing {
			return nil, nil
		}
		m.stopTimerLocked()
		return []Transition{m.moveLocked(Connected, OutcomeNone)}, nil
	})
}

// HandleRejected ends an outgoing call of the same kind that the callee
// declined.
func (m *Machine) HandleRejected(kind domain.CallKind) {
	_ = m.do(func() ([]Transition, error) {
		if m.state != Outgoing || m.session.Kind != kind {
			return nil, nil
		}
		return m.endLocked(OutcomeRejected), nil
	})
}

func (m *Machine) HandleBusy(p protocol.CallNotice) {
	m.endOutgoing(OutcomeBusy, p.RoomID)
}

func (m *Machine) HandleUnavailable(p protocol.CallNotice) {
	m.endOutgoing(OutcomeUnavailable, p.RoomID)
}

func (m *Machine) endOutgoing(outcome Outcome, room domain.RoomID) {
	_ = m.do(func() ([]Transition, error) {
		if m.state != Outgoing || !m.sameRoomLocked(room) {
			return nil, nil
		}
		return m.endLocked(outcome), nil
	})
}

// HandleEnded ends the call when the peer hangs up or cancels.
func (m *Machine) HandleEnded(p protocol.CallNotice) {
	_ = m.do(func() ([]Transition, error) {
		if m.session == nil || !m.sameRoomLocked(p.RoomID) {
			return nil, nil
		}
		if p.From != "" && p.From != m.session.Peer.ID {
			return nil, nil
		}
		return m.endLocked(OutcomeRemoteHangup), nil
	})
}

// An empty room matches any call; older peers do not send one.
func (m *Machine) sameRoomLocked(room domain.RoomID) bool {
	return room == "" || (m.session != nil && m.session.RoomID == room)
}

func (m *Machine) expire(gen uint64) {
	_ = m.do(func() ([]Transition, error) {
		if m.gen != gen || (m.state != Outgoing && m.state != Incoming) {
			return nil, nil
		}
		m.warnEmit(m.endCallEventLocked(), protocol.EventEndCall)
		return m.endLocked(OutcomeNoAnswer), nil
	})
}
