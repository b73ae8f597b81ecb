package core

import (
	"context"
	"errors"

	"github.com/dkeye/Chatline/internal/domain"
)

var ErrNotFound = errors.New("not found")

// MessageStore is the durability collaborator for chat messages.
// The relay path never calls it; REST handlers do.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg domain.StoredMessage) (domain.StoredMessage, error)
	Conversation(ctx context.Context, a, b domain.UserID) ([]domain.StoredMessage, error)
}

// ProfileDirectory resolves user identifiers to public profiles.
type ProfileDirectory interface {
	UpsertProfile(ctx context.Context, p domain.Profile) error
	Profile(ctx context.Context, id domain.UserID) (domain.Profile, error)
}
