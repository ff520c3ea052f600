package app

import (
	"errors"
	"sync"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var ErrUnknownConnection = errors.New("unknown connection")

type hubEntry struct {
	session core.Session
	rooms   map[domain.RoomName]struct{}
}

// Hub owns every attached connection and the rooms they sit in. All sends
// are best-effort: a failing connection never aborts the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*hubEntry
	rooms    map[domain.RoomName]core.RoomService
	policy   Policy
}

func NewHub(policy Policy) *Hub {
	if policy == nil {
		policy = TolerantPolicy{}
	}
	return &Hub{
		sessions: make(map[core.ConnID]*hubEntry),
		rooms:    make(map[domain.RoomName]core.RoomService),
		policy:   policy,
	}
}

func (h *Hub) Attach(s core.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = &hubEntry{session: s, rooms: make(map[domain.RoomName]struct{})}
	log.Info().Str("module", "app.hub").Str("conn", string(s.ID())).Str("user", string(s.Identity().ID)).Msg("attached")
}

// Detach forgets the connection and removes it from every room it joined.
func (h *Hub) Detach(cid core.ConnID) (core.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[cid]
	if !ok {
		return nil, false
	}
	for name := range e.rooms {
		h.leaveLocked(cid, name)
	}
	delete(h.sessions, cid)
	log.Info().Str("module", "app.hub").Str("conn", string(cid)).Msg("detached")
	return e.session, true
}

func (h *Hub) Session(cid core.ConnID) (core.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.sessions[cid]
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (h *Hub) JoinRoom(cid core.ConnID, name domain.RoomName) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[cid]
	if !ok {
		return false
	}
	room, ok := h.rooms[name]
	if !ok {
		room = core.NewRoomService(name)
		h.rooms[name] = room
	}
	room.Add(e.session)
	e.rooms[name] = struct{}{}
	return true
}

func (h *Hub) LeaveRoom(cid core.ConnID, name domain.RoomName) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(cid, name)
}

func (h *Hub) leaveLocked(cid core.ConnID, name domain.RoomName) bool {
	if e, ok := h.sessions[cid]; ok {
		delete(e.rooms, name)
	}
	room, ok := h.rooms[name]
	if !ok {
		return false
	}
	removed := room.Remove(cid)
	if room.Len() == 0 {
		delete(h.rooms, name)
	}
	return removed
}

func (h *Hub) RoomConnections(name domain.RoomName) []core.ConnID {
	h.mu.RLock()
	room, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Connections()
}

func (h *Hub) Rooms() []core.RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(h.rooms))
	for name, r := range h.rooms {
		out = append(out, core.RoomInfo{Name: name, Connections: r.Len()})
	}
	return out
}

func (h *Hub) SendTo(cid core.ConnID, ev core.Event, payload any) error {
	s, ok := h.Session(cid)
	if !ok {
		return ErrUnknownConnection
	}
	f, err := core.Encode(ev, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", string(ev)).Msg("encode")
		return err
	}
	if err := s.Signal().TrySend(f); err != nil {
		h.onDropped("", []core.Session{s})
		return err
	}
	return nil
}

// SendToConnections sends to each listed connection once, skipping
// duplicates and connections that are gone.
func (h *Hub) SendToConnections(cids []core.ConnID, ev core.Event, payload any) int {
	f, err := core.Encode(ev, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", string(ev)).Msg("encode")
		return 0
	}
	res := core.PublishResult{}
	for _, cid := range lo.Uniq(cids) {
		s, ok := h.Session(cid)
		if !ok {
			continue
		}
		if err := s.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.SentTo++
	}
	h.onDropped("", res.Dropped)
	return res.SentTo
}

func (h *Hub) SendToRoom(name domain.RoomName, ev core.Event, payload any) int {
	return h.SendToRoomExcept(name, nil, ev, payload)
}

func (h *Hub) SendToRoomExcept(name domain.RoomName, exclude []core.ConnID, ev core.Event, payload any) int {
	h.mu.RLock()
	room, ok := h.rooms[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	f, err := core.Encode(ev, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", string(ev)).Msg("encode")
		return 0
	}
	res := room.Publish(f, lo.SliceToMap(exclude, func(c core.ConnID) (core.ConnID, struct{}) {
		return c, struct{}{}
	}))
	h.onDropped(name, res.Dropped)
	return res.SentTo
}

// Broadcast sends to every attached connection except one.
func (h *Hub) Broadcast(except core.ConnID, ev core.Event, payload any) int {
	h.mu.RLock()
	cids := make([]core.ConnID, 0, len(h.sessions))
	for cid := range h.sessions {
		if cid != except {
			cids = append(cids, cid)
		}
	}
	h.mu.RUnlock()
	return h.SendToConnections(cids, ev, payload)
}

func (h *Hub) onDropped(room domain.RoomName, dropped []core.Session) {
	for _, s := range dropped {
		switch h.policy.OnBackPressure(room, s) {
		case KickConnection:
			log.Warn().Str("module", "app.hub").Str("conn", string(s.ID())).Str("room", string(room)).Msg("kicking slow connection")
			s.Signal().Close()
		case DropFrame, NoAction:
			log.Debug().Str("module", "app.hub").Str("conn", string(s.ID())).Msg("frame dropped")
		}
	}
}

// Close closes every attached transport. The adapters' read loops then
// run their own disconnect path.
func (h *Hub) Close() {
	h.mu.RLock()
	sessions := lo.MapToSlice(h.sessions, func(_ core.ConnID, e *hubEntry) core.Session { return e.session })
	h.mu.RUnlock()
	for _, s := range sessions {
		s.Signal().Close()
	}
	log.Info().Str("module", "app.hub").Int("closed", len(sessions)).Msg("hub closed")
}
