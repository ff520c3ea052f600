package orch

import (
	"sync"
	"time"

	"github.com/dkeye/talks/internal/app"
	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator wires the chat services around one presence registry and
// one hub. It is created at process start and closed at shutdown.
type Orchestrator struct {
	Presence   *app.PresenceRegistry
	Hub        *app.Hub
	Users      core.UserStore
	Membership *app.Membership
	Router     *app.Router
	Typing     *app.Typing
	Receipts   *app.Receipts

	now func() time.Time
	// presenceLocks serialize a user's presence edge with its persistence
	// and broadcast, so an online and an offline edge never finish out of
	// order.
	presenceLocks [presenceLockStripes]sync.Mutex
}

const presenceLockStripes = 64

func (o *Orchestrator) lockUser(uid domain.UserID) func() {
	mu := &o.presenceLocks[xxhash.Sum64String(string(uid))%presenceLockStripes]
	mu.Lock()
	return mu.Unlock
}

type Stores struct {
	Users    core.UserStore
	Channels core.ChannelStore
	Messages core.MessageStore
}

type Options struct {
	Policy        app.Policy
	TypingTimeout time.Duration
}

func New(stores Stores, codec core.Codec, opts Options) *Orchestrator {
	presence := app.NewPresenceRegistry()
	hub := app.NewHub(opts.Policy)
	return &Orchestrator{
		Presence:   presence,
		Hub:        hub,
		Users:      stores.Users,
		Membership: app.NewMembership(stores.Channels, presence, hub),
		Router:     app.NewRouter(stores.Messages, codec, presence, hub),
		Typing:     app.NewTyping(opts.TypingTimeout, presence, hub),
		Receipts:   app.NewReceipts(stores.Messages, presence, hub),
		now:        time.Now,
	}
}

// Close stops typing timers, closes every transport and drops presence.
func (o *Orchestrator) Close() {
	o.Typing.Close()
	o.Hub.Close()
	o.Presence.Close()
	log.Info().Str("module", "orch").Msg("orchestrator closed")
}
