// Package domain contains entities without transport logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const (
	MaxUserIDLen   = 255
	MaxUsernameLen = 255
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// Identity is the already verified caller. It never changes for the
// lifetime of a connection.
type Identity struct {
	ID          UserID `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(id, username, displayName, avatarURL string) (*Identity, error) {
	if len(id) == 0 {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	if displayName == "" {
		displayName = username
	}
	return &Identity{
		ID:          UserID(id),
		Username:    username,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}, nil
}

// UserRef is the short form of a user carried in room notifications.
type UserRef struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

func (i *Identity) Ref() UserRef {
	return UserRef{ID: i.ID, Username: i.Username}
}

// User is the persisted view of an identity plus presence bookkeeping.
type User struct {
	Identity
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}
