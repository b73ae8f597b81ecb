package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Chatline/internal/protocol"
	"github.com/gorilla/websocket"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				c.Close()
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, s *session) {
	c := s.conn
	defer func() {
		cancel()
		c.Close()
		ctl.limiter.Forget(c.ID())
		ctl.Orch.Disconnect(s.user(), c)
		s.log.Info().Str("uid", string(s.user())).Msg("connection closed")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.dispatch(s, data)
	}
}

// dispatch handles one inbound frame. Nothing it does may take down the
// read loop or leak into other connections.
func (ctl *SignalWSController) dispatch(s *session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("event handler panic")
			ctl.sendError(s, "", "internal")
		}
	}()

	env, err := protocol.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("bad json")
		ctl.sendError(s, "", protocol.ErrCodeBadPayload)
		return
	}
	l := s.log.With().Str("event", env.Event).Logger()

	if !ctl.limiter.Allow(s.conn.ID()) {
		l.Warn().Msg("rate limited")
		ctl.sendError(s, env.Event, protocol.ErrCodeRateLimited)
		return
	}

	h, ok := ctl.handlers[env.Event]
	if !ok {
		l.Warn().Msg("unknown event")
		ctl.sendError(s, env.Event, protocol.ErrCodeUnknownEvent)
		return
	}
	if err := h(s, env); err != nil {
		var ee *eventError
		if errors.As(err, &ee) {
			l.Warn().Err(err).Str("code", ee.code).Msg("event rejected")
			ctl.sendError(s, env.Event, ee.code)
			return
		}
		l.Error().Err(err).Msg("event failed")
		ctl.sendError(s, env.Event, "internal")
	}
}

func (ctl *SignalWSController) sendJSON(s *session, event string, v any) {
	frame, err := protocol.Encode(event, v)
	if err != nil {
		s.log.Error().Err(err).Str("event", event).Msg("sendJSON marshal")
		return
	}
	if err := s.conn.TrySend(frame); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("sendJSON")
	}
}

func (ctl *SignalWSController) sendError(s *session, event, code string) {
	ctl.sendJSON(s, protocol.EventError, protocol.Error{Error: code, Event: event})
}
