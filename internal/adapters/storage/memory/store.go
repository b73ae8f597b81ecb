// Package memory keeps messages and profiles in process memory.
// Used for development and tests; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	messages []domain.StoredMessage
	profiles map[domain.UserID]domain.Profile
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[domain.UserID]domain.Profile),
		now:      time.Now,
	}
}

func (s *Store) CreateMessage(_ context.Context, msg domain.StoredMessage) (domain.StoredMessage, error) {
	if err := msg.Validate(); err != nil {
		return domain.StoredMessage{}, err
	}
	msg.ID = domain.MessageID(uuid.NewString())
	msg.CreatedAt = s.now().UTC()
	if msg.Status == "" {
		msg.Status = domain.StatusSent
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// Conversation returns the messages between a and b, oldest first.
func (s *Store) Conversation(_ context.Context, a, b domain.UserID) ([]domain.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredMessage, 0)
	for _, m := range s.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) UpsertProfile(_ context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
	return nil
}

func (s *Store) Profile(_ context.Context, id domain.UserID) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, core.ErrNotFound)
	}
	return p, nil
}

var (
	_ core.MessageStore     = (*Store)(nil)
	_ core.ProfileDirectory = (*Store)(nil)
)
