package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

type SendRequest struct {
	Draft  domain.Draft
	TempID json.RawMessage
}

// Router validates, persists and fans out messages. A message is stored
// before anyone sees it.
type Router struct {
	messages core.MessageStore
	codec    core.Codec
	presence *PresenceRegistry
	hub      *Hub
}

func NewRouter(messages core.MessageStore, codec core.Codec, presence *PresenceRegistry, hub *Hub) *Router {
	return &Router{messages: messages, codec: codec, presence: presence, hub: hub}
}

func (r *Router) Send(ctx context.Context, sender *domain.Identity, origin core.ConnID, req SendRequest) (*domain.MessageView, error) {
	msg, err := domain.NewMessage(sender.ID, req.Draft)
	if err != nil {
		return nil, err
	}

	plaintext := msg.Content
	if msg.Content, err = r.codec.Encode(plaintext); err != nil {
		return nil, fmt.Errorf("%w: encode content: %v", domain.ErrPersistence, err)
	}
	if err := r.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	view, err := r.messages.GetMessageView(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	view.Content = r.codec.Decode(view.Content)

	var delivered int
	if view.IsDirect {
		recipients := r.presence.Connections(*view.RecipientID)
		senders := r.presence.Connections(sender.ID)
		delivered = r.hub.SendToConnections(append(recipients, senders...), core.EventMessage, view)
	} else {
		delivered = r.hub.SendToRoom(domain.ChannelRoom(*view.ChannelID), core.EventMessage, view)
	}
	log.Info().
		Str("module", "app.router").
		Int64("message", int64(view.ID)).
		Str("sender", string(sender.ID)).
		Bool("direct", view.IsDirect).
		Int("delivered", delivered).
		Msg("message routed")

	_ = r.hub.SendTo(origin, core.EventMessageSent, MessageSent{MessageID: view.ID, TempID: req.TempID})
	return view, nil
}
