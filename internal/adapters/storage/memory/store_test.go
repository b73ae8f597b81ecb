package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
)

func TestStore_Conversation(t *testing.T) {
	s := NewStore()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	ctx := context.Background()

	send := func(from, to domain.UserID, text string) domain.StoredMessage {
		t.Helper()
		m, err := s.CreateMessage(ctx, domain.StoredMessage{SenderID: from, RecipientID: to, Content: text})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return m
	}
	first := send("A", "B", "hi")
	send("C", "B", "unrelated")
	send("B", "A", "hello")

	if first.ID == "" || first.Type != domain.MessageText || first.Status != domain.StatusSent {
		t.Fatalf("defaults not applied: %+v", first)
	}

	got, err := s.Conversation(ctx, "B", "A")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if len(got) != 2 || got[0].Content != "hi" || got[1].Content != "hello" {
		t.Fatalf("conversation=%+v", got)
	}
	if !got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Fatalf("conversation not ordered by time")
	}

	empty, err := s.Conversation(ctx, "A", "Z")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty conversation=%v, %v", empty, err)
	}
}

func TestStore_CreateMessageValidates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	cases := []struct {
		name string
		msg  domain.StoredMessage
		want error
	}{
		{"no sender", domain.StoredMessage{RecipientID: "B", Content: "x"}, domain.ErrUserIDEmpty},
		{"self", domain.StoredMessage{SenderID: "A", RecipientID: "A", Content: "x"}, domain.ErrSelfMessage},
		{"empty", domain.StoredMessage{SenderID: "A", RecipientID: "B"}, domain.ErrMessageEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreateMessage(ctx, tc.msg); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestStore_Profiles(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Profile(ctx, "A"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if err := s.UpsertProfile(ctx, domain.Profile{ID: "A", Name: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertProfile(ctx, domain.Profile{ID: "A", Name: "Alicia", About: "hi"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p, err := s.Profile(ctx, "A")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Name != "Alicia" || p.About != "hi" {
		t.Fatalf("profile=%+v", p)
	}
	if err := s.UpsertProfile(ctx, domain.Profile{}); !errors.Is(err, domain.ErrUserIDEmpty) {
		t.Fatalf("err=%v, want ErrUserIDEmpty", err)
	}
}
