package domain

import "time"

type ChannelID int64

type Channel struct {
	ID          ChannelID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   *UserID   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership is one (channel, user) pair. Joining twice is a no-op.
type Membership struct {
	ChannelID ChannelID
	UserID    UserID
	JoinedAt  time.Time
}
