package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed       = errors.New("client closed")
	ErrBackpressure = errors.New("send buffer full")
)

type Options struct {
	CallTimeout time.Duration
	SendBuffer  int
	WriteWait   time.Duration
	Header      http.Header
}

// Client is one connection to the relay, announced as self.
type Client struct {
	self  domain.Profile
	conn  *websocket.Conn
	opts  Options
	Calls *Machine

	mu       sync.RWMutex
	closed   bool
	send     chan []byte
	online   []domain.UserID
	onMsg    []func(protocol.MsgReceive)
	onOnline []func([]domain.UserID)
	onError  []func(protocol.Error)

	handlers map[string]func(protocol.Envelope) error
	done     chan struct{}
}

// Dial connects to url (ws://host/api/ws) and announces self.
func Dial(ctx context.Context, url string, self domain.Profile, opts Options) (*Client, error) {
	if err := self.Validate(); err != nil {
		return nil, err
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := newClient(self, conn, opts)
	go c.writeLoop()
	go c.readLoop()
	if err := c.Emit(protocol.EventAddUser, self.ID); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(self domain.Profile, conn *websocket.Conn, opts Options) *Client {
	c := &Client{
		self: self,
		conn: conn,
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}
	c.Calls = NewMachine(self, c, opts.CallTimeout)
	c.handlers = map[string]func(protocol.Envelope) error{
		protocol.EventOnlineUsers:       c.handleOnline,
		protocol.EventMsgReceive:        c.handleMessage,
		protocol.EventIncomingVoiceCall: c.incomingCall(domain.CallVoice),
		protocol.EventIncomingVideoCall: c.incomingCall(domain.CallVideo),
		protocol.EventVoiceCallRejected: c.callRejected(domain.CallVoice),
		protocol.EventVideoCallRejected: c.callRejected(domain.CallVideo),
		protocol.EventAcceptCall:        c.callAccepted,
		protocol.EventCallEnded:         c.callNotice(c.Calls.HandleEnded),
		protocol.EventCallBusy:          c.callNotice(c.Calls.HandleBusy),
		protocol.EventCallUnavailable:   c.callNotice(c.Calls.HandleUnavailable),
		protocol.EventError:             c.handleError,
		protocol.EventPong:              func(protocol.Envelope) error { return nil },
	}
	return c
}

func (c *Client) Self() domain.Profile { return c.self }

// Emit queues an event for the server without blocking.
func (c *Client) Emit(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

// SendMessage forwards a message record (already persisted through the
// REST collaborator) to its recipient. Delivery is not confirmed.
func (c *Client) SendMessage(to domain.UserID, message any) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.Emit(protocol.EventSendMsg, protocol.SendMsg{To: to, From: c.self.ID, Message: raw})
}

func (c *Client) SignOut() error {
	return c.Emit(protocol.EventSignOut, c.self.ID)
}

// Online is the last OnlineSet received.
func (c *Client) Online() []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.online)
}

func (c *Client) OnMessage(fn func(protocol.MsgReceive)) {
	c.mu.Lock()
	c.onMsg = append(c.onMsg, fn)
	c.mu.Unlock()
}

func (c *Client) OnOnline(fn func([]domain.UserID)) {
	c.mu.Lock()
	c.onOnline = append(c.onOnline, fn)
	c.mu.Unlock()
}

func (c *Client) OnError(fn func(protocol.Error)) {
	c.mu.Lock()
	c.onError = append(c.onError, fn)
	c.mu.Unlock()
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return nil
}

func (c *Client) writeLoop() {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("write")
			c.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.opts.WriteWait))
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "client").Msg("read")
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("bad frame")
		return
	}
	h, ok := c.handlers[env.Event]
	if !ok {
		log.Debug().Str("module", "client").Str("event", env.Event).Msg("unhandled event")
		return
	}
	if err := h(env); err != nil {
		log.Warn().Err(err).Str("module", "client").Str("event", env.Event).Msg("event dropped")
	}
}

func (c *Client) handleOnline(env protocol.Envelope) error {
	var p protocol.OnlineUsers
	if err := env.Bind(&p); err != nil {
		return err
	}
	c.mu.Lock()
	c.online = p.OnlineUsers
	obs := slices.Clone(c.onOnline)
	c.mu.Unlock()
	for _, fn := range obs {
		fn(slices.Clone(p.OnlineUsers))
	}
	return nil
}

func (c *Client) handleMessage(env protocol.Envelope) error {
	var p protocol.MsgReceive
	if err := env.Bind(&p); err != nil {
		return err
	}
	c.mu.RLock()
	obs := slices.Clone(c.onMsg)
	c.mu.RUnlock()
	for _, fn := range obs {
		fn(p)
	}
	return nil
}

func (c *Client) handleError(env protocol.Envelope) error {
	var p protocol.Error
	if err := env.Bind(&p); err != nil {
		return err
	}
	log.Warn().Str("module", "client").Str("code", p.Error).Str("event", p.Event).Msg("server rejected event")
	c.mu.RLock()
	obs := slices.Clone(c.onError)
	c.mu.RUnlock()
	for _, fn := range obs {
		fn(p)
	}
	return nil
}

func (c *Client) incomingCall(kind domain.CallKind) func(protocol.Envelope) error {
	return func(env protocol.Envelope) error {
		var p protocol.IncomingCall
		if err := env.Bind(&p); err != nil {
			return err
		}
		if p.From == "" || p.RoomID == "" {
			return protocol.ErrMissingField
		}
		c.Calls.HandleIncomingCall(kind, p)
		return nil
	}
}

func (c *Client) callRejected(kind domain.CallKind) func(protocol.Envelope) error {
	return func(protocol.Envelope) error {
		c.Calls.HandleRejected(kind)
		return nil
	}
}

func (c *Client) callAccepted(protocol.Envelope) error {
	c.Calls.HandleAccepted()
	return nil
}

func (c *Client) callNotice(fn func(protocol.CallNotice)) func(protocol.Envelope) error {
	return func(env protocol.Envelope) error {
		var p protocol.CallNotice
		if len(env.Data) > 0 {
			if err := env.Bind(&p); err != nil {
				return err
			}
		}
		fn(p)
		return nil
	}
}
