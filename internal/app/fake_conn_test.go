package app

import (
	"sync"
	"testing"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/protocol"
	json "github.com/goccy/go-json"
)

type fakeConn struct {
	id core.ConnectionID

	mu     sync.Mutex
	frames []protocol.Envelope
	full   bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: core.ConnectionID(id)}
}

func (c *fakeConn) ID() core.ConnectionID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	env, err := protocol.Decode(f)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) events() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Envelope(nil), c.frames...)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// lastOnline decodes the most recent online-users event.
func (c *fakeConn) lastOnline(t *testing.T) ([]string, bool) {
	t.Helper()
	evs := c.events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Event != protocol.EventOnlineUsers {
			continue
		}
		var p struct {
			OnlineUsers []string `json:"onlineUsers"`
		}
		if err := json.Unmarshal(evs[i].Data, &p); err != nil {
			t.Fatalf("decode online users: %v", err)
		}
		return p.OnlineUsers, true
	}
	return nil, false
}
