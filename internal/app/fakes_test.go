package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
)

type recordingSignal struct {
	mu     sync.Mutex
	frames []core.Envelope
	full   bool
	closed bool
}

func (s *recordingSignal) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrConnectionClosed
	}
	if s.full {
		return core.ErrBackpressure
	}
	var env core.Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		return err
	}
	s.frames = append(s.frames, env)
	return nil
}

func (s *recordingSignal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSignal) events(ev core.Event) []core.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Envelope
	for _, env := range s.frames {
		if env.Type == ev {
			out = append(out, env)
		}
	}
	return out
}

func (s *recordingSignal) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSignal) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// harness is a presence registry and hub with helpers to attach fake
// connections the way the orchestrator does.
type harness struct {
	presence *PresenceRegistry
	hub      *Hub
	signals  map[core.ConnID]*recordingSignal
}

func newHarness(policy Policy) *harness {
	return &harness{
		presence: NewPresenceRegistry(),
		hub:      NewHub(policy),
		signals:  make(map[core.ConnID]*recordingSignal),
	}
}

func (h *harness) connect(who *domain.Identity, cid core.ConnID) *recordingSignal {
	sig := &recordingSignal{}
	h.signals[cid] = sig
	h.hub.Attach(core.NewSession(cid, who, sig))
	h.presence.Register(who.ID, cid)
	return sig
}

func identity(id string) *domain.Identity {
	return &domain.Identity{ID: domain.UserID(id), Username: id + "-name", DisplayName: id}
}

type memStore struct {
	mu       sync.Mutex
	channels map[domain.ChannelID]*domain.Channel
	members  map[domain.ChannelID]map[domain.UserID]time.Time
	users    map[domain.UserID]domain.Identity
	online   map[domain.UserID]bool
	messages []*domain.Message
	failAdd  error
	failMsg  error
}

func newMemStore(channels ...domain.ChannelID) *memStore {
	s := &memStore{
		channels: make(map[domain.ChannelID]*domain.Channel),
		members:  make(map[domain.ChannelID]map[domain.UserID]time.Time),
		users:    make(map[domain.UserID]domain.Identity),
		online:   make(map[domain.UserID]bool),
	}
	for _, id := range channels {
		s.channels[id] = &domain.Channel{ID: id, Name: "c"}
	}
	return s
}

func (s *memStore) GetChannel(_ context.Context, id domain.ChannelID) (*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ch, nil
}

func (s *memStore) AddMember(_ context.Context, m domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd != nil {
		return s.failAdd
	}
	if s.members[m.ChannelID] == nil {
		s.members[m.ChannelID] = make(map[domain.UserID]time.Time)
	}
	if _, ok := s.members[m.ChannelID][m.UserID]; !ok {
		s.members[m.ChannelID][m.UserID] = m.JoinedAt
	}
	return nil
}

func (s *memStore) RemoveMember(_ context.Context, channelID domain.ChannelID, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[channelID], uid)
	return nil
}

func (s *memStore) ChannelsOf(_ context.Context, uid domain.UserID) ([]domain.ChannelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChannelID
	for id, m := range s.members {
		if _, ok := m[uid]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *memStore) memberCount(id domain.ChannelID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members[id])
}

func (s *memStore) CreateMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMsg != nil {
		return s.failMsg
	}
	cp := *m
	cp.ID = domain.MessageID(len(s.messages) + 1)
	cp.CreatedAt = time.Now()
	s.messages = append(s.messages, &cp)
	m.ID, m.CreatedAt = cp.ID, cp.CreatedAt
	return nil
}

func (s *memStore) find(id domain.MessageID) *domain.Message {
	if id <= 0 || int(id) > len(s.messages) {
		return nil
	}
	return s.messages[id-1]
}

func (s *memStore) GetMessageView(_ context.Context, id domain.MessageID) (*domain.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(id)
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return &domain.MessageView{Message: *m, SenderUsername: string(m.SenderID) + "-name"}, nil
}

func (s *memStore) SenderOf(_ context.Context, id domain.MessageID) (domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(id)
	if m == nil {
		return "", domain.ErrNotFound
	}
	return m.SenderID, nil
}

func (s *memStore) MarkRead(_ context.Context, id domain.MessageID, reader domain.UserID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(id)
	if m == nil || m.RecipientID == nil || *m.RecipientID != reader {
		return 0, nil
	}
	m.IsRead, m.ReadAt = true, &at
	return 1, nil
}

func (s *memStore) MarkAllRead(_ context.Context, sender, reader domain.UserID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.IsDirect && !m.IsRead && m.SenderID == sender && m.RecipientID != nil && *m.RecipientID == reader {
			m.IsRead, m.ReadAt = true, &at
			n++
		}
	}
	return n, nil
}

func (s *memStore) ChannelHistory(context.Context, domain.ChannelID, core.HistoryQuery) ([]domain.MessageView, error) {
	return nil, nil
}

func (s *memStore) DirectHistory(context.Context, domain.UserID, domain.UserID, core.HistoryQuery) ([]domain.MessageView, error) {
	return nil, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// reverseCodec stands in for a real cipher so tests can tell encoded and
// decoded content apart.
type reverseCodec struct{}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func (reverseCodec) Encode(s string) (string, error) { return "enc:" + reverse(s), nil }
func (reverseCodec) Decode(s string) string {
	if len(s) < 4 || s[:4] != "enc:" {
		return s
	}
	return reverse(s[4:])
}
