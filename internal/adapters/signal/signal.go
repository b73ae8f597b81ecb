package signal

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Chatline/internal/app/orch"
	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// IdentityKey is the gin context key under which the router stores the user
// id bound to the browser session, if any.
const IdentityKey = "session_user_id"

type Options struct {
	ReadLimit       int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	SendBuffer      int
	AllowedOrigins  []string
	EventsPerSecond float64
	Burst           int
}

func (o *Options) withDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.PongWait <= o.PingPeriod {
		o.PongWait = o.PingPeriod * 10 / 9
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
}

type handlerFunc func(s *session, env protocol.Envelope) error

// SignalWSController is the transport adapter: one websocket per client,
// events dispatched through a table keyed by event name.
type SignalWSController struct {
	Orch     *orch.Orchestrator
	opts     Options
	limiter  *EventRateLimiter
	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts.withDefaults()
	ctl := &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewEventRateLimiter(opts.EventsPerSecond, opts.Burst),
	}
	ctl.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	ctl.handlers = map[string]handlerFunc{
		protocol.EventAddUser:           ctl.handleAddUser,
		protocol.EventSignOut:           ctl.handleSignOut,
		protocol.EventSendMsg:           ctl.handleSendMsg,
		protocol.EventOutgoingVoiceCall: ctl.outgoingCall(domain.CallVoice),
		protocol.EventOutgoingVideoCall: ctl.outgoingCall(domain.CallVideo),
		protocol.EventRejectVoiceCall:   ctl.rejectCall(domain.CallVoice),
		protocol.EventRejectVideoCall:   ctl.rejectCall(domain.CallVideo),
		protocol.EventAcceptIncoming:    ctl.handleAcceptCall,
		protocol.EventEndCall:           ctl.handleEndCall,
		protocol.EventBusyCall:          ctl.handleBusyCall,
		protocol.EventPing:              ctl.handlePing,
	}
	return ctl
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, origin) || slices.Contains(allowed, u.Host)
	}
}

// WsSignalConn implements core.SignalConnection over a websocket.
type WsSignalConn struct {
	id   core.ConnectionID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   core.NewConnectionID(),
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) ID() core.ConnectionID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// session is the per-connection state owned by the read loop.
type session struct {
	conn     *WsSignalConn
	identity domain.UserID
	log      zerolog.Logger

	mu  sync.Mutex
	uid domain.UserID
}

func (s *session) user() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// swapUser binds uid and returns the previously bound id.
func (s *session) swapUser(uid domain.UserID) domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.uid
	s.uid = uid
	return prev
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ctl.Serve(ctx, c.Writer, c.Request, domain.UserID(c.GetString(IdentityKey)))
}

// Serve upgrades the request and runs the connection until either side
// closes it or ctx is done. identity, when set, is the only user id the
// connection may announce.
func (ctl *SignalWSController) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, identity domain.UserID) {
	ws, err := ctl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	s := &session{
		conn:     conn,
		identity: identity,
		log:      log.With().Str("module", "signal").Str("conn", string(conn.ID())).Logger(),
	}
	s.log.Info().Str("identity", string(identity)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, s)
}
