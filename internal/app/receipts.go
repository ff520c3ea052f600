package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

// Receipts marks messages read and tells the sender's devices.
type Receipts struct {
	messages core.MessageStore
	presence *PresenceRegistry
	hub      *Hub
	now      func() time.Time
}

func NewReceipts(messages core.MessageStore, presence *PresenceRegistry, hub *Hub) *Receipts {
	return &Receipts{messages: messages, presence: presence, hub: hub, now: time.Now}
}

// MarkRead marks one message read by reader. Messages not addressed to
// reader are left alone and produce no event.
func (r *Receipts) MarkRead(ctx context.Context, reader domain.UserID, id domain.MessageID) error {
	at := r.now()
	n, err := r.messages.MarkRead(ctx, id, reader, at)
	if err != nil {
		return fmt.Errorf("mark read %d: %w", id, err)
	}
	if n == 0 {
		log.Debug().Str("module", "app.receipts").Int64("message", int64(id)).Str("reader", string(reader)).Msg("nothing to mark")
		return nil
	}
	sender, err := r.messages.SenderOf(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark read %d: %w", id, err)
	}
	r.hub.SendToConnections(r.presence.Connections(sender), core.EventMessageRead, MessageRead{MessageID: id, ReadBy: reader, ReadAt: at})
	return nil
}

// MarkAllRead marks every unread direct message sender→reader and emits a
// single aggregated event, or none when nothing changed.
func (r *Receipts) MarkAllRead(ctx context.Context, reader, sender domain.UserID) (int64, error) {
	at := r.now()
	n, err := r.messages.MarkAllRead(ctx, sender, reader, at)
	if err != nil {
		return 0, fmt.Errorf("mark all read from %s: %w", sender, err)
	}
	log.Debug().Str("module", "app.receipts").Str("sender", string(sender)).Str("reader", string(reader)).Int64("rows", n).Msg("marked all read")
	if n == 0 {
		return 0, nil
	}
	r.hub.SendToConnections(r.presence.Connections(sender), core.EventMessagesRead, MessagesRead{ReadBy: reader, ReadAt: at})
	return n, nil
}
