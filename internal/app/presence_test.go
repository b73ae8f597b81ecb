package app

import (
	"slices"
	"testing"

	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

func TestPresence_BothPeersObserveOnlineSet(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")

	p.Register("A", c1)
	p.Register("B", c2)

	for name, c := range map[string]*fakeConn{"A": c1, "B": c2} {
		got, ok := c.lastOnline(t)
		if !ok {
			t.Fatalf("%s got no online-users", name)
		}
		if want := []string{"A", "B"}; !slices.Equal(got, want) {
			t.Fatalf("%s online=%v, want %v", name, got, want)
		}
	}
}

func TestPresence_SignOutNotifiesRemaining(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	p.Register("A", c1)
	p.Register("B", c2)
	c2.reset()

	p.Unregister("A")

	got, ok := c2.lastOnline(t)
	if !ok || !slices.Equal(got, []string{"B"}) {
		t.Fatalf("B online=%v,%v, want [B]", got, ok)
	}
}

func TestPresence_DisconnectExcludesOriginator(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	p.Register("A", c1)
	p.Register("B", c2)
	c1.reset()
	c2.reset()

	p.UnregisterConn("B", "c2")

	if evs := c2.events(); len(evs) != 0 {
		t.Fatalf("originator got %d events, want 0", len(evs))
	}
	if got, _ := c1.lastOnline(t); !slices.Equal(got, []string{"A"}) {
		t.Fatalf("A online=%v, want [A]", got)
	}
}

func TestPresence_NoBroadcastForNoop(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	c1 := newFakeConn("c1")
	p.Register("A", c1)
	c1.reset()

	p.Unregister("ghost")

	if evs := c1.events(); len(evs) != 0 {
		t.Fatalf("got %d events for a no-op unregister", len(evs))
	}
}

func TestPresence_EveryMutationBroadcasts(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	watcher := newFakeConn("w")
	p.Register("W", watcher)
	watcher.reset()

	for _, uid := range []string{"A", "B", "C"} {
		p.Register(domainID(uid), newFakeConn("c-"+uid))
	}
	p.Unregister("B")

	evs := watcher.events()
	if len(evs) != 4 {
		t.Fatalf("got %d broadcasts, want 4", len(evs))
	}
	for _, ev := range evs {
		if ev.Event != protocol.EventOnlineUsers {
			t.Fatalf("unexpected event %q", ev.Event)
		}
	}
	if got, _ := watcher.lastOnline(t); !slices.Equal(got, []string{"A", "C", "W"}) {
		t.Fatalf("final online=%v, want [A C W]", got)
	}
}

func TestPresence_SlowConnectionDisconnected(t *testing.T) {
	p := NewPresence(NewRegistry(), SimplePolicy{})
	slow := newFakeConn("slow")
	p.Register("S", slow)
	slow.full = true

	p.Register("A", newFakeConn("c1"))

	if !slow.isClosed() {
		t.Fatalf("slow connection should be closed by the policy")
	}
}

func TestPresence_DropPolicyKeepsConnection(t *testing.T) {
	p := NewPresence(NewRegistry(), DropPolicy{})
	slow := newFakeConn("slow")
	p.Register("S", slow)
	slow.full = true

	p.Register("A", newFakeConn("c1"))

	if slow.isClosed() {
		t.Fatalf("drop policy must not close the connection")
	}
}

func TestPresence_SwitchIsOneMutation(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	watcher, conn := newFakeConn("w"), newFakeConn("c1")
	p.Register("W", watcher)
	p.Register("A", conn)
	watcher.reset()

	p.Switch("A", "A2", conn)

	evs := watcher.events()
	if len(evs) != 1 {
		t.Fatalf("watcher got %d broadcasts, want 1", len(evs))
	}
	got, _ := watcher.lastOnline(t)
	if want := []string{"A2", "W"}; !slices.Equal(got, want) {
		t.Fatalf("online=%v, want %v", got, want)
	}
}

func TestPresence_SwitchKeepsOtherConnection(t *testing.T) {
	p := NewPresence(NewRegistry(), nil)
	tab1, tab2 := newFakeConn("t1"), newFakeConn("t2")
	p.Register("A", tab1)
	p.Register("A", tab2)

	p.Switch("A", "B", tab1)

	if id, ok := p.reg.LookupID("A"); !ok || id != "t2" {
		t.Fatalf("A lookup=%q,%v, want t2,true", id, ok)
	}
	if want := []domain.UserID{"A", "B"}; !slices.Equal(p.Online(), want) {
		t.Fatalf("online=%v, want %v", p.Online(), want)
	}
}
