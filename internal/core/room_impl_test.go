package core

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/talks/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeSignal struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
}

func (f *fakeSignal) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {}

func (f *fakeSignal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestSession(id string) (Session, *fakeSignal) {
	sig := &fakeSignal{}
	return NewSession(ConnID(id), &domain.Identity{ID: domain.UserID("u-" + id), Username: id}, sig), sig
}

func TestRoom_PublishReachesEveryConnection(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("channel:1")
	s1, sig1 := newTestSession("c1")
	s2, sig2 := newTestSession("c2")

	// Given two connections in the room
	room.Add(s1)
	room.Add(s2)
	req.Equal(2, room.Len())

	// When a frame is published with no exclusions
	res := room.Publish(Frame("x"), nil)

	// Then both got it
	req.Equal(2, res.SentTo)
	req.Empty(res.Dropped)
	req.Equal(1, sig1.count())
	req.Equal(1, sig2.count())
}

func TestRoom_PublishSkipsExcludedAndReportsDropped(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("channel:1")
	s1, sig1 := newTestSession("c1")
	s2, sig2 := newTestSession("c2")
	s3, sig3 := newTestSession("c3")
	sig3.full = true
	room.Add(s1)
	room.Add(s2)
	room.Add(s3)

	res := room.Publish(Frame("x"), map[ConnID]struct{}{"c1": {}})

	req.Equal(1, res.SentTo)
	req.Len(res.Dropped, 1)
	req.Equal(ConnID("c3"), res.Dropped[0].ID())
	req.Zero(sig1.count())
	req.Equal(1, sig2.count())
	req.Zero(sig3.count())
}

func TestRoom_Remove(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("channel:1")
	s1, _ := newTestSession("c1")
	room.Add(s1)

	req.True(room.Remove("c1"))
	req.False(room.Remove("c1"))
	req.Zero(room.Len())
	req.Empty(room.Connections())
}

func TestEncode(t *testing.T) {
	req := require.New(t)

	f, err := Encode(EventMessageSent, map[string]any{"messageId": 3})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(f, &env))
	req.Equal(EventMessageSent, env.Type)
	req.JSONEq(`{"messageId":3}`, string(env.Data))
}
