package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func sendDirect(t *testing.T, r *Router, from, to *domain.Identity, origin core.ConnID, text string) domain.MessageID {
	t.Helper()
	v, err := r.Send(context.Background(), from, origin, SendRequest{
		Draft: domain.Draft{Content: text, RecipientID: lo.ToPtr(to.ID)},
	})
	require.NoError(t, err)
	return v.ID
}

func TestReceipts_MarkReadNotifiesSenderDevices(t *testing.T) {
	req := require.New(t)
	h := newHarness(nil)
	store := newMemStore()
	router := NewRouter(store, reverseCodec{}, h.presence, h.hub)
	rc := NewReceipts(store, h.presence, h.hub)
	a, b := identity("a"), identity("b")
	sa1 := h.connect(a, "a1")
	sa2 := h.connect(a, "a2")
	sb := h.connect(b, "b1")
	id := sendDirect(t, router, a, b, "a1", "hi")

	req.NoError(rc.MarkRead(context.Background(), b.ID, id))

	for _, s := range []*recordingSignal{sa1, sa2} {
		events := s.events(core.EventMessageRead)
		req.Len(events, 1)
		var got MessageRead
		req.NoError(json.Unmarshal(events[0].Data, &got))
		req.Equal(id, got.MessageID)
		req.Equal(b.ID, got.ReadBy)
	}
	req.Empty(sb.events(core.EventMessageRead))
}

func TestReceipts_MarkReadByNonRecipientIsSilent(t *testing.T) {
	req := require.New(t)
	h := newHarness(nil)
	store := newMemStore()
	router := NewRouter(store, reverseCodec{}, h.presence, h.hub)
	rc := NewReceipts(store, h.presence, h.hub)
	a, b, c := identity("a"), identity("b"), identity("c")
	sa := h.connect(a, "a1")
	h.connect(b, "b1")
	id := sendDirect(t, router, a, b, "a1", "hi")

	req.NoError(rc.MarkRead(context.Background(), c.ID, id))
	req.NoError(rc.MarkRead(context.Background(), b.ID, 999))

	req.Empty(sa.events(core.EventMessageRead))
	req.False(store.messages[0].IsRead)
}

func TestReceipts_MarkAllReadEmitsOneAggregatedEvent(t *testing.T) {
	req := require.New(t)
	h := newHarness(nil)
	store := newMemStore()
	router := NewRouter(store, reverseCodec{}, h.presence, h.hub)
	rc := NewReceipts(store, h.presence, h.hub)
	a, b := identity("a"), identity("b")
	sa := h.connect(a, "a1")
	h.connect(b, "b1")

	// Given three unread messages a→b
	for _, text := range []string{"1", "2", "3"} {
		sendDirect(t, router, a, b, "a1", text)
	}

	// When b marks all read
	n, err := rc.MarkAllRead(context.Background(), b.ID, a.ID)

	// Then one messages_read went to a
	req.NoError(err)
	req.EqualValues(3, n)
	req.Len(sa.events(core.EventMessagesRead), 1)

	// And a second call changes nothing and emits nothing
	n, err = rc.MarkAllRead(context.Background(), b.ID, a.ID)
	req.NoError(err)
	req.Zero(n)
	req.Len(sa.events(core.EventMessagesRead), 1)
}
