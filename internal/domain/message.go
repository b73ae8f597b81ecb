package domain

import (
	"errors"
	"time"
)

var (
	ErrMessageEmpty = errors.New("message content empty")
	ErrSelfMessage  = errors.New("sender and recipient are the same user")
)

type MessageID string

// StoredMessage is the record owned by the storage collaborator.
// The relay only ever forwards it as an opaque payload.
type StoredMessage struct {
	ID          MessageID `json:"id"`
	SenderID    UserID    `json:"senderId"`
	RecipientID UserID    `json:"recipientId"`
	Type        string    `json:"type"`
	Content     string    `json:"message"`
	Status      string    `json:"messageStatus"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	MessageText  = "text"
	MessageImage = "image"
	MessageAudio = "audio"

	StatusSent      = "sent"
	StatusDelivered = "delivered"
)

func (m *StoredMessage) Validate() error {
	if err := m.SenderID.Validate(); err != nil {
		return err
	}
	if err := m.RecipientID.Validate(); err != nil {
		return err
	}
	if m.SenderID == m.RecipientID {
		return ErrSelfMessage
	}
	if m.Content == "" {
		return ErrMessageEmpty
	}
	if m.Type == "" {
		m.Type = MessageText
	}
	return nil
}
