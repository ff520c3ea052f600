package domain

import (
	"fmt"
	"strings"
	"time"
)

type MessageID int64

// Message is the persisted row. Exactly one of ChannelID and RecipientID is
// set, and RecipientID is set iff IsDirect.
type Message struct {
	ID          MessageID  `json:"id"`
	Content     string     `json:"content"`
	SenderID    UserID     `json:"sender_id"`
	ChannelID   *ChannelID `json:"channel_id"`
	RecipientID *UserID    `json:"recipient_id"`
	IsDirect    bool       `json:"is_direct"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MessageView is a message joined with the sender display fields, as it goes
// out on the wire and in history responses.
type MessageView struct {
	Message
	SenderUsername    string `json:"sender_username"`
	SenderAvatar      string `json:"sender_avatar"`
	SenderDisplayName string `json:"sender_display_name"`
}

// Draft is an unvalidated send request.
type Draft struct {
	Content     string
	ChannelID   *ChannelID
	RecipientID *UserID
	// IsDirect is optional; when nil it is inferred from the target.
	IsDirect *bool
}

// NewMessage validates d and builds the row to persist for sender.
func NewMessage(sender UserID, d Draft) (*Message, error) {
	if strings.TrimSpace(d.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidMessageShape)
	}
	hasChannel := d.ChannelID != nil && *d.ChannelID > 0
	hasRecipient := d.RecipientID != nil && *d.RecipientID != ""
	if hasChannel == hasRecipient {
		return nil, fmt.Errorf("%w: exactly one of channelId and recipientId is required", ErrInvalidMessageShape)
	}
	if d.IsDirect != nil && *d.IsDirect != hasRecipient {
		return nil, fmt.Errorf("%w: isDirect does not match target", ErrInvalidMessageShape)
	}

	m := &Message{
		Content:  d.Content,
		SenderID: sender,
		IsDirect: hasRecipient,
	}
	if hasChannel {
		id := *d.ChannelID
		m.ChannelID = &id
	} else {
		id := *d.RecipientID
		m.RecipientID = &id
	}
	return m, nil
}
