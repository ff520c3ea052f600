package core

import (
	"context"
	"time"

	"github.com/dkeye/talks/internal/domain"
)

// UserStore persists identities and last-seen bookkeeping.
type UserStore interface {
	UpsertUser(ctx context.Context, id domain.Identity) error
	SetPresence(ctx context.Context, uid domain.UserID, online bool, at time.Time) error
}

// ChannelStore persists the channel membership relation.
type ChannelStore interface {
	// GetChannel returns domain.ErrNotFound for an unknown id.
	GetChannel(ctx context.Context, id domain.ChannelID) (*domain.Channel, error)
	// AddMember is idempotent: a duplicate pair is not an error.
	AddMember(ctx context.Context, m domain.Membership) error
	RemoveMember(ctx context.Context, channelID domain.ChannelID, uid domain.UserID) error
	ChannelsOf(ctx context.Context, uid domain.UserID) ([]domain.ChannelID, error)
}

// HistoryQuery pages backwards from Before (exclusive) when set.
type HistoryQuery struct {
	Before *domain.MessageID
	Limit  int
}

// MessageStore persists messages. Content is stored as given; encoding is
// the caller's concern.
type MessageStore interface {
	// CreateMessage assigns m.ID and m.CreatedAt.
	CreateMessage(ctx context.Context, m *domain.Message) error
	GetMessageView(ctx context.Context, id domain.MessageID) (*domain.MessageView, error)
	SenderOf(ctx context.Context, id domain.MessageID) (domain.UserID, error)
	// MarkRead only touches the row addressed to reader.
	MarkRead(ctx context.Context, id domain.MessageID, reader domain.UserID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, sender, reader domain.UserID, at time.Time) (int64, error)
	ChannelHistory(ctx context.Context, channelID domain.ChannelID, q HistoryQuery) ([]domain.MessageView, error)
	DirectHistory(ctx context.Context, a, b domain.UserID, q HistoryQuery) ([]domain.MessageView, error)
}

// Codec protects content at rest. Decode returns its input unchanged when it
// is not something Encode produced.
type Codec interface {
	Encode(plaintext string) (string, error)
	Decode(ciphertext string) string
}
