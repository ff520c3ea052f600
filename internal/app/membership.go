package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

// Membership keeps the persisted channel membership and the transport rooms
// in step. Rooms are only touched after the store accepted the change.
type Membership struct {
	store    core.ChannelStore
	presence *PresenceRegistry
	hub      *Hub
	now      func() time.Time
}

func NewMembership(store core.ChannelStore, presence *PresenceRegistry, hub *Hub) *Membership {
	return &Membership{store: store, presence: presence, hub: hub, now: time.Now}
}

func (m *Membership) Join(ctx context.Context, who *domain.Identity, channelID domain.ChannelID, origin core.ConnID) (*domain.Channel, error) {
	ch, err := m.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("join channel %d: %w", channelID, err)
	}
	now := m.now()
	if err := m.store.AddMember(ctx, domain.Membership{ChannelID: channelID, UserID: who.ID, JoinedAt: now}); err != nil {
		return nil, fmt.Errorf("join channel %d: %w", channelID, err)
	}

	room := domain.ChannelRoom(channelID)
	for _, cid := range m.presence.Connections(who.ID) {
		m.hub.JoinRoom(cid, room)
	}
	log.Info().Str("module", "app.membership").Str("user", string(who.ID)).Int64("channel", int64(channelID)).Msg("joined")

	m.hub.SendToRoom(room, core.EventUserJoined, RoomNotice{ChannelID: channelID, User: who.Ref(), Timestamp: now})
	_ = m.hub.SendTo(origin, core.EventChannelJoined, ChannelJoined{Channel: ch})
	return ch, nil
}

func (m *Membership) Leave(ctx context.Context, who *domain.Identity, channelID domain.ChannelID, origin core.ConnID) error {
	if err := m.store.RemoveMember(ctx, channelID, who.ID); err != nil {
		return fmt.Errorf("leave channel %d: %w", channelID, err)
	}

	room := domain.ChannelRoom(channelID)
	for _, cid := range m.presence.Connections(who.ID) {
		m.hub.LeaveRoom(cid, room)
	}
	log.Info().Str("module", "app.membership").Str("user", string(who.ID)).Int64("channel", int64(channelID)).Msg("left")

	m.hub.SendToRoom(room, core.EventUserLeft, RoomNotice{ChannelID: channelID, User: who.Ref(), Timestamp: m.now()})
	_ = m.hub.SendTo(origin, core.EventChannelLeft, ChannelLeft{ChannelID: channelID})
	return nil
}

// RestoreRooms puts a freshly attached connection into the room of every
// channel its user already belongs to.
func (m *Membership) RestoreRooms(ctx context.Context, uid domain.UserID, cid core.ConnID) error {
	ids, err := m.store.ChannelsOf(ctx, uid)
	if err != nil {
		return fmt.Errorf("restore rooms: %w", err)
	}
	for _, id := range ids {
		m.hub.JoinRoom(cid, domain.ChannelRoom(id))
	}
	log.Debug().Str("module", "app.membership").Str("user", string(uid)).Str("conn", string(cid)).Int("rooms", len(ids)).Msg("rooms restored")
	return nil
}
