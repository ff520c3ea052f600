package app

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Transition is the presence edge produced by a register/deregister call.
type Transition int

const (
	NoTransition Transition = iota
	BecameOnline
	BecameOffline
)

func (t Transition) String() string {
	switch t {
	case BecameOnline:
		return "online"
	case BecameOffline:
		return "offline"
	default:
		return "none"
	}
}

const presenceShards = 32

type presenceShard struct {
	mu    sync.RWMutex
	users map[domain.UserID]map[core.ConnID]struct{}
}

// PresenceRegistry maps users to their live connections. A user key exists
// iff it holds at least one connection.
type PresenceRegistry struct {
	shards [presenceShards]*presenceShard
}

func NewPresenceRegistry() *PresenceRegistry {
	r := &PresenceRegistry{}
	for i := range r.shards {
		r.shards[i] = &presenceShard{users: make(map[domain.UserID]map[core.ConnID]struct{})}
	}
	return r
}

func (r *PresenceRegistry) shard(uid domain.UserID) *presenceShard {
	return r.shards[xxhash.Sum64String(string(uid))%presenceShards]
}

func (r *PresenceRegistry) Register(uid domain.UserID, cid core.ConnID) Transition {
	s := r.shard(uid)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.users[uid]
	if !ok {
		conns = make(map[core.ConnID]struct{}, 1)
		s.users[uid] = conns
	}
	conns[cid] = struct{}{}
	log.Debug().Str("module", "app.presence").Str("user", string(uid)).Str("conn", string(cid)).Int("conns", len(conns)).Msg("registered connection")
	if !ok {
		return BecameOnline
	}
	return NoTransition
}

func (r *PresenceRegistry) Deregister(uid domain.UserID, cid core.ConnID) Transition {
	s := r.shard(uid)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.users[uid]
	if !ok {
		return NoTransition
	}
	if _, ok := conns[cid]; !ok {
		return NoTransition
	}
	delete(conns, cid)
	log.Debug().Str("module", "app.presence").Str("user", string(uid)).Str("conn", string(cid)).Int("conns", len(conns)).Msg("deregistered connection")
	if len(conns) == 0 {
		delete(s.users, uid)
		return BecameOffline
	}
	return NoTransition
}

func (r *PresenceRegistry) IsOnline(uid domain.UserID) bool {
	s := r.shard(uid)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[uid]
	return ok
}

// Connections returns a snapshot of the user's live connections.
func (r *PresenceRegistry) Connections(uid domain.UserID) []core.ConnID {
	s := r.shard(uid)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Keys(s.users[uid])
}

func (r *PresenceRegistry) OnlineUserIDs() []domain.UserID {
	out := make([]domain.UserID, 0)
	for _, s := range r.shards {
		s.mu.RLock()
		out = append(out, lo.Keys(s.users)...)
		s.mu.RUnlock()
	}
	return out
}

// Close drops every entry. Used at shutdown after the transport is gone.
func (r *PresenceRegistry) Close() {
	for _, s := range r.shards {
		s.mu.Lock()
		s.users = make(map[domain.UserID]map[core.ConnID]struct{})
		s.mu.Unlock()
	}
	log.Info().Str("module", "app.presence").Msg("registry closed")
}
