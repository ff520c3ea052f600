package app

import (
	"encoding/json"
	"time"

	"github.com/dkeye/talks/internal/domain"
)

// Outbound payloads.

type PresenceNotice struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

type RoomNotice struct {
	ChannelID domain.ChannelID `json:"channelId"`
	User      domain.UserRef   `json:"user"`
	Timestamp time.Time        `json:"timestamp"`
}

type ChannelJoined struct {
	Channel *domain.Channel `json:"channel"`
}

type ChannelLeft struct {
	ChannelID domain.ChannelID `json:"channelId"`
}

type MessageSent struct {
	MessageID domain.MessageID `json:"messageId"`
	// TempID is the client correlation token, echoed back unmodified.
	TempID json.RawMessage `json:"tempId"`
}

type TypingNotice struct {
	UserID    domain.UserID     `json:"userId"`
	Username  string            `json:"username"`
	Timestamp time.Time         `json:"timestamp"`
	ChannelID *domain.ChannelID `json:"channelId,omitempty"`
	IsDirect  bool              `json:"isDirect,omitempty"`
}

type TypingStopNotice struct {
	UserID    domain.UserID     `json:"userId"`
	Username  string            `json:"username"`
	ChannelID *domain.ChannelID `json:"channelId,omitempty"`
	IsDirect  bool              `json:"isDirect,omitempty"`
}

type MessageRead struct {
	MessageID domain.MessageID `json:"messageId"`
	ReadBy    domain.UserID    `json:"readBy"`
	ReadAt    time.Time        `json:"readAt"`
}

type MessagesRead struct {
	ReadBy domain.UserID `json:"readBy"`
	ReadAt time.Time     `json:"readAt"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}
