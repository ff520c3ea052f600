package core

import (
	"sync"

	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	name   domain.RoomName
	mu     sync.RWMutex
	byConn map[ConnID]Session
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:   name,
		byConn: make(map[ConnID]Session),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func (r *roomImpl) Connections() []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byConn)
}

func (r *roomImpl) Add(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[s.ID()] = s
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("conn", string(s.ID())).Msg("connection added")
}

func (r *roomImpl) Remove(id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[id]; !ok {
		return false
	}
	delete(r.byConn, id)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("conn", string(id)).Msg("connection removed")
	return true
}

func (r *roomImpl) Publish(f Frame, exclude map[ConnID]struct{}) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, s := range r.byConn {
		if _, skip := exclude[id]; skip {
			continue
		}
		if err := s.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("publish result")
	return res
}
