package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultTypingTimeout = 3000 * time.Millisecond

// Timer is the part of *time.Timer the tracker needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. time.AfterFunc in production.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// TypingTarget names the conversation a user types into. A channel wins
// when both a channel and a recipient are given.
type TypingTarget struct {
	ChannelID   *domain.ChannelID
	RecipientID *domain.UserID
}

// TypingKey identifies one typing state: who types where.
type TypingKey struct {
	Direct    bool
	ChannelID domain.ChannelID
	Recipient domain.UserID
	UserID    domain.UserID
}

func (t TypingTarget) key(uid domain.UserID) (TypingKey, error) {
	hasChannel := t.ChannelID != nil && *t.ChannelID > 0
	hasRecipient := t.RecipientID != nil && *t.RecipientID != ""
	switch {
	case hasChannel:
		return TypingKey{ChannelID: *t.ChannelID, UserID: uid}, nil
	case hasRecipient:
		return TypingKey{Direct: true, Recipient: *t.RecipientID, UserID: uid}, nil
	default:
		return TypingKey{}, fmt.Errorf("%w: typing needs a channelId or a recipientId", domain.ErrInvalidMessageShape)
	}
}

type typingEntry struct {
	username  string
	startedAt time.Time
	gen       uint64
	timer     Timer
}

// Typing tracks ephemeral "is typing" state. Every state expires timeout
// after its most recent start unless stopped first.
type Typing struct {
	mu      sync.Mutex
	entries map[TypingKey]*typingEntry
	gen     uint64
	closed  bool

	timeout  time.Duration
	presence *PresenceRegistry
	hub      *Hub
	now      func() time.Time
	schedule Scheduler
}

func NewTyping(timeout time.Duration, presence *PresenceRegistry, hub *Hub) *Typing {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &Typing{
		entries:  make(map[TypingKey]*typingEntry),
		timeout:  timeout,
		presence: presence,
		hub:      hub,
		now:      time.Now,
		schedule: afterFunc,
	}
}

func (t *Typing) Start(who *domain.Identity, target TypingTarget) error {
	key, err := target.key(who.ID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}

	now := t.now()
	t.gen++
	gen := t.gen
	e, active := t.entries[key]
	if active {
		e.timer.Stop()
		e.startedAt = now
		e.gen = gen
	} else {
		e = &typingEntry{username: who.Username, startedAt: now, gen: gen}
		t.entries[key] = e
	}
	e.timer = t.schedule(t.timeout, func() { t.expire(key, gen, now) })

	if !active {
		t.notifyStartLocked(key, who, now)
	}
	return nil
}

func (t *Typing) Stop(who *domain.Identity, target TypingTarget) error {
	key, err := target.key(who.ID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	e.timer.Stop()
	delete(t.entries, key)
	t.notifyStopLocked(key, e)
	return nil
}

// StopAll clears every typing state held by uid.
func (t *Typing) StopAll(uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.entries {
		if key.UserID != uid {
			continue
		}
		e.timer.Stop()
		delete(t.entries, key)
		t.notifyStopLocked(key, e)
	}
}

// IsTyping reports whether key currently holds a live state.
func (t *Typing) IsTyping(key TypingKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

func (t *Typing) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, key)
	}
	t.closed = true
	log.Info().Str("module", "app.typing").Msg("tracker closed")
}

// expire fires from the timer armed for (gen, startedAt). A later start
// has replaced both, so a stale timer finds no match and does nothing.
func (t *Typing) expire(key TypingKey, gen uint64, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || e.gen != gen || !e.startedAt.Equal(startedAt) {
		return
	}
	delete(t.entries, key)
	log.Debug().Str("module", "app.typing").Str("user", string(key.UserID)).Msg("typing expired")
	t.notifyStopLocked(key, e)
}

func (t *Typing) notifyStartLocked(key TypingKey, who *domain.Identity, at time.Time) {
	n := TypingNotice{UserID: who.ID, Username: who.Username, Timestamp: at}
	if key.Direct {
		n.IsDirect = true
		t.hub.SendToConnections(t.presence.Connections(key.Recipient), core.EventTyping, n)
		return
	}
	ch := key.ChannelID
	n.ChannelID = &ch
	t.hub.SendToRoomExcept(domain.ChannelRoom(ch), t.presence.Connections(key.UserID), core.EventTyping, n)
}

func (t *Typing) notifyStopLocked(key TypingKey, e *typingEntry) {
	n := TypingStopNotice{UserID: key.UserID, Username: e.username}
	if key.Direct {
		n.IsDirect = true
		t.hub.SendToConnections(t.presence.Connections(key.Recipient), core.EventTypingStop, n)
		return
	}
	ch := key.ChannelID
	n.ChannelID = &ch
	t.hub.SendToRoomExcept(domain.ChannelRoom(ch), t.presence.Connections(key.UserID), core.EventTypingStop, n)
}
