package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Chatline/internal/adapters/signal"
	"github.com/dkeye/Chatline/internal/app"
	"github.com/dkeye/Chatline/internal/app/orch"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

func startRelay(t *testing.T) string {
	t.Helper()
	ctl := signal.NewSignalWSController(orch.New(app.SimplePolicy{}), signal.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctl.Serve(ctx, w, r, "")
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, id domain.UserID) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, domain.Profile{ID: id, Name: strings.ToLower(string(id))}, Options{CallTimeout: time.Minute})
	if err != nil {
		t.Fatalf("dial %s: %v", id, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func onlineIs(c *Client, want ...domain.UserID) func() bool {
	return func() bool { return slices.Equal(c.Online(), want) }
}

func TestClient_CallAndMessage(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url, "A")
	b := dial(t, url, "B")
	eventually(t, "A sees B", onlineIs(a, "A", "B"))
	eventually(t, "B sees A", onlineIs(b, "A", "B"))

	bTrs := make(chan Transition, 8)
	b.Calls.OnTransition(func(tr Transition) { bTrs <- tr })

	s, err := a.Calls.Call(domain.CallVideo, domain.Profile{ID: "B"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	eventually(t, "B ringing", func() bool { return b.Calls.State() == Incoming })
	rs, _ := b.Calls.Session()
	if rs.RoomID != s.RoomID || rs.Kind != domain.CallVideo || rs.Peer.Name != "a" {
		t.Fatalf("callee session=%+v", rs)
	}

	if err := b.Calls.Accept(); err != nil {
		t.Fatalf("accept: %v", err)
	}
	eventually(t, "A connected", func() bool { return a.Calls.State() == Connected })

	got := make(chan protocol.MsgReceive, 1)
	b.OnMessage(func(m protocol.MsgReceive) { got <- m })
	if err := a.SendMessage("B", domain.StoredMessage{ID: "m1", SenderID: "A", RecipientID: "B", Content: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case m := <-got:
		if m.From != "A" || !strings.Contains(string(m.Message), `"message":"hi"`) {
			t.Fatalf("msg=%+v %s", m, m.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not delivered")
	}

	if err := a.Calls.Hangup(); err != nil {
		t.Fatalf("hangup: %v", err)
	}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case tr := <-bTrs:
			if tr.To == Idle {
				if tr.Outcome != OutcomeRemoteHangup {
					t.Fatalf("callee outcome=%q, want remote-hung-up", tr.Outcome)
				}
				return
			}
		case <-timeout:
			t.Fatalf("callee never returned to idle")
		}
	}
}

func TestClient_CallOfflineUser(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url, "A")
	eventually(t, "A online", onlineIs(a, "A"))

	done := make(chan Outcome, 4)
	a.Calls.OnTransition(func(tr Transition) {
		if tr.To == Idle {
			done <- tr.Outcome
		}
	})
	if _, err := a.Calls.Call(domain.CallVoice, domain.Profile{ID: "Z"}); err != nil {
		t.Fatalf("call: %v", err)
	}
	select {
	case o := <-done:
		if o != OutcomeUnavailable {
			t.Fatalf("outcome=%q, want unavailable", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("call never ended")
	}
}

func TestClient_BusyCallee(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url, "A")
	b := dial(t, url, "B")
	c := dial(t, url, "C")
	eventually(t, "all online", onlineIs(c, "A", "B", "C"))

	if _, err := a.Calls.Call(domain.CallVoice, domain.Profile{ID: "B"}); err != nil {
		t.Fatalf("call: %v", err)
	}
	eventually(t, "B ringing", func() bool { return b.Calls.State() == Incoming })

	done := make(chan Outcome, 4)
	c.Calls.OnTransition(func(tr Transition) {
		if tr.To == Idle {
			done <- tr.Outcome
		}
	})
	if _, err := c.Calls.Call(domain.CallVoice, domain.Profile{ID: "B"}); err != nil {
		t.Fatalf("call: %v", err)
	}
	select {
	case o := <-done:
		if o != OutcomeBusy {
			t.Fatalf("outcome=%q, want busy", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("busy never reported")
	}
	if b.Calls.State() != Incoming {
		t.Fatalf("B state=%v, the first call must keep ringing", b.Calls.State())
	}
}

func TestClient_SignOutAndClose(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url, "A")
	b := dial(t, url, "B")
	eventually(t, "A sees B", onlineIs(a, "A", "B"))

	if err := b.SignOut(); err != nil {
		t.Fatalf("signout: %v", err)
	}
	eventually(t, "B gone", onlineIs(a, "A"))

	_ = a.Close()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("connection not torn down")
	}
	if err := a.Emit(protocol.EventPing, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("emit after close err=%v, want ErrClosed", err)
	}
}

func TestDial_InvalidProfile(t *testing.T) {
	if _, err := Dial(context.Background(), "ws://127.0.0.1:1/api/ws", domain.Profile{}, Options{}); !errors.Is(err, domain.ErrUserIDEmpty) {
		t.Fatalf("err=%v, want ErrUserIDEmpty", err)
	}
}
