// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen = 128
	MaxNameLen   = 64
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrNameTooLong   = errors.New("name too long")
)

// UserID is the stable identifier handed over by the identity collaborator.
type UserID string

func (id UserID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	return nil
}

// Profile is the public part of a user needed to render chats and calls.
type Profile struct {
	ID           UserID `json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	About        string `json:"about,omitempty"`
}

// NewProfile is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewProfile(id UserID, name string) (*Profile, error) {
	p := &Profile{ID: id}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.SetName(name); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) Validate() error {
	if err := p.ID.Validate(); err != nil {
		return err
	}
	if len(p.Name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func (p *Profile) SetName(name string) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	p.Name = name
	return nil
}

// DisplayName falls back to the id when no name is known.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return string(p.ID)
}
