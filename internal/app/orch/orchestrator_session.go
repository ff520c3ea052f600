package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Connect attaches a verified connection. The first connection of a user
// flips them online for everybody else.
func (o *Orchestrator) Connect(ctx context.Context, who *domain.Identity, sig core.SignalConnection) (core.Session, error) {
	if who == nil || who.ID == "" {
		return nil, domain.ErrAuthRejected
	}
	if err := o.Users.UpsertUser(ctx, *who); err != nil {
		return nil, fmt.Errorf("connect %s: %w", who.ID, err)
	}

	cid := core.ConnID(uuid.NewString())
	sess := core.NewSession(cid, who, sig)
	o.Hub.Attach(sess)

	unlock := o.lockUser(who.ID)
	if o.Presence.Register(who.ID, cid) == app.BecameOnline {
		if err := o.Users.SetPresence(ctx, who.ID, true, o.now()); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("user", string(who.ID)).Msg("persist online")
		}
		o.Hub.Broadcast(cid, core.EventUserOnline, app.PresenceNotice{UserID: who.ID, Username: who.Username})
		log.Info().Str("module", "orch").Str("user", string(who.ID)).Msg("user online")
	}
	unlock()

	if err := o.Membership.RestoreRooms(ctx, who.ID, cid); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(cid)).Msg("restore rooms")
	}
	_ = o.Hub.SendTo(cid, core.EventOnlineUsers, o.Presence.OnlineUserIDs())
	return sess, nil
}

// Disconnect detaches a connection. Only the last one of a user flips them
// offline, persists last-seen and clears their typing states.
func (o *Orchestrator) Disconnect(ctx context.Context, cid core.ConnID) {
	sess, ok := o.Hub.Detach(cid)
	if !ok {
		return
	}
	who := sess.Identity()
	defer o.lockUser(who.ID)()
	if o.Presence.Deregister(who.ID, cid) != app.BecameOffline {
		return
	}

	o.Typing.StopAll(who.ID)
	if err := o.Users.SetPresence(ctx, who.ID, false, o.now()); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(who.ID)).Msg("persist offline")
	}
	o.Hub.Broadcast("", core.EventUserOffline, app.PresenceNotice{UserID: who.ID, Username: who.Username})
	log.Info().Str("module", "orch").Str("user", string(who.ID)).Msg("user offline")
}
