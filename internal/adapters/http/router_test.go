package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/talks/internal/adapters/codec"
	"github.com/dkeye/talks/internal/adapters/storage"
	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/app/orch"
	"github.com/dkeye/talks/internal/config"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine   *gin.Engine
	orch     *orch.Orchestrator
	store    *storage.Store
	verifier *Verifier
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(":memory:", false)
	require.NoError(t, err)
	store := storage.NewStore(db)
	require.NoError(t, store.SeedDefaultChannels(context.Background()))
	cdc, err := codec.NewAESGCM("test-key")
	require.NoError(t, err)
	o := orch.New(orch.Stores{Users: store, Channels: store, Messages: store}, cdc, orch.Options{})
	t.Cleanup(func() {
		o.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{Mode: "test", Secret: "secret", HistoryLimit: 50}
	return &fixture{
		engine:   SetupRouter(context.Background(), cfg, Deps{Orch: o, Messages: store, Channels: store, Codec: cdc}),
		orch:     o,
		store:    store,
		verifier: NewVerifier(cfg.Secret),
	}
}

func (f *fixture) get(t *testing.T, path string, as domain.UserID) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if as != "" {
		tok, err := f.verifier.Issue(domain.Identity{ID: as, Username: string(as)}, time.Hour)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, r)
	return w
}

func (f *fixture) send(t *testing.T, from domain.UserID, d domain.Draft) {
	t.Helper()
	ctx := context.Background()
	who := &domain.Identity{ID: from, Username: string(from)}
	require.NoError(t, f.store.UpsertUser(ctx, *who))
	_, err := f.orch.Router.Send(ctx, who, "", app.SendRequest{Draft: d})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	f := setupRouter(t)

	w := f.get(t, "/health", "")

	req.Equal(http.StatusOK, w.Code)
	var body map[string]any
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Equal("ok", body["status"])
	req.Equal("talks", body["service"])
}

func TestAPI_RequiresToken(t *testing.T) {
	f := setupRouter(t)
	for _, path := range []string{"/api/ws", "/api/users/online", "/api/messages/channel/1"} {
		require.Equal(t, http.StatusUnauthorized, f.get(t, path, "").Code, path)
	}
}

func TestHistory_ChannelIsDecodedOldestFirst(t *testing.T) {
	req := require.New(t)
	f := setupRouter(t)
	for _, text := range []string{"one", "two", "three"} {
		f.send(t, "alice", domain.Draft{Content: text, ChannelID: lo.ToPtr(domain.ChannelID(1))})
	}

	w := f.get(t, "/api/messages/channel/1?limit=2", "bob")

	req.Equal(http.StatusOK, w.Code)
	var got []domain.MessageView
	req.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	req.Len(got, 2)
	req.Equal("two", got[0].Content)
	req.Equal("three", got[1].Content)

	w = f.get(t, "/api/messages/channel/1?before=2", "bob")
	req.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	req.Len(got, 1)
	req.Equal("one", got[0].Content)
}

func TestHistory_DirectIsScopedToCaller(t *testing.T) {
	req := require.New(t)
	f := setupRouter(t)
	f.send(t, "alice", domain.Draft{Content: "to bob", RecipientID: lo.ToPtr(domain.UserID("bob"))})
	f.send(t, "alice", domain.Draft{Content: "to carol", RecipientID: lo.ToPtr(domain.UserID("carol"))})

	w := f.get(t, "/api/messages/direct/alice", "bob")

	req.Equal(http.StatusOK, w.Code)
	var got []domain.MessageView
	req.NoError(json.Unmarshal(w.Body.Bytes(), &got))
	req.Len(got, 1)
	req.Equal("to bob", got[0].Content)
}

func TestHistory_BadParams(t *testing.T) {
	f := setupRouter(t)
	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/messages/channel/abc", "bob").Code)
	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/messages/channel/1?limit=-1", "bob").Code)
	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/messages/channel/1?before=x", "bob").Code)
}

func TestOnlineUsers(t *testing.T) {
	req := require.New(t)
	f := setupRouter(t)
	f.orch.Presence.Register("alice", "c1")

	w := f.get(t, "/api/users/online", "bob")

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"users":["alice"]}`, w.Body.String())
}

func TestChannelInfo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := setupRouter(t)
	for _, uid := range []domain.UserID{"alice", "bob"} {
		req.NoError(f.store.UpsertUser(ctx, domain.Identity{ID: uid, Username: string(uid)}))
		req.NoError(f.store.AddMember(ctx, domain.Membership{ChannelID: 1, UserID: uid, JoinedAt: time.Now()}))
	}

	w := f.get(t, "/api/channels/1", "bob")

	req.Equal(http.StatusOK, w.Code)
	var body struct {
		Channel     domain.Channel `json:"channel"`
		MemberCount int64          `json:"memberCount"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Equal("general", body.Channel.Name)
	req.Equal(int64(2), body.MemberCount)

	req.Equal(http.StatusNotFound, f.get(t, "/api/channels/999", "bob").Code)
	req.Equal(http.StatusBadRequest, f.get(t, "/api/channels/x", "bob").Code)
}

func TestRooms(t *testing.T) {
	req := require.New(t)
	f := setupRouter(t)
	sess := core.NewSession("c1", &domain.Identity{ID: "alice", Username: "alice"}, nopSignal{})
	f.orch.Hub.Attach(sess)
	f.orch.Hub.JoinRoom("c1", domain.ChannelRoom(1))

	w := f.get(t, "/api/rooms", "bob")

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"rooms":[{"name":"channel:1","connection_count":1}]}`, w.Body.String())
}

type nopSignal struct{}

func (nopSignal) TrySend(core.Frame) error { return nil }
func (nopSignal) Close()                   {}
