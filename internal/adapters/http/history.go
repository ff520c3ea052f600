package http

import (
	"net/http"
	"strconv"

	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// HistoryHandler serves decoded message history, oldest first.
type HistoryHandler struct {
	Messages     core.MessageStore
	Codec        core.Codec
	DefaultLimit int
}

func (h *HistoryHandler) query(c *gin.Context) (core.HistoryQuery, bool) {
	q := core.HistoryQuery{Limit: h.DefaultLimit}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return q, false
		}
		q.Limit = n
	}
	if s := c.Query("before"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before"})
			return q, false
		}
		q.Before = lo.ToPtr(domain.MessageID(n))
	}
	return q, true
}

func (h *HistoryHandler) respond(c *gin.Context, views []domain.MessageView, err error) {
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	out := lo.Map(views, func(v domain.MessageView, _ int) domain.MessageView {
		v.Content = h.Codec.Decode(v.Content)
		return v
	})
	c.JSON(http.StatusOK, out)
}

func (h *HistoryHandler) Channel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	q, ok := h.query(c)
	if !ok {
		return
	}
	views, err := h.Messages.ChannelHistory(c.Request.Context(), domain.ChannelID(id), q)
	h.respond(c, views, err)
}

func (h *HistoryHandler) Direct(c *gin.Context) {
	other := domain.UserID(c.Param("userId"))
	if other == "" || len(other) > domain.MaxUserIDLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	q, ok := h.query(c)
	if !ok {
		return
	}
	views, err := h.Messages.DirectHistory(c.Request.Context(), identity(c).ID, other, q)
	h.respond(c, views, err)
}

// OnlineUsers lists the ids of users with at least one live connection.
func OnlineUsers(presence *app.PresenceRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": presence.OnlineUserIDs()})
	}
}
