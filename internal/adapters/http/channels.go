package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ChannelDirectory is the read side of the channel store the HTTP surface
// needs.
type ChannelDirectory interface {
	GetChannel(ctx context.Context, id domain.ChannelID) (*domain.Channel, error)
	CountMembers(ctx context.Context, channelID domain.ChannelID) (int64, error)
}

// ChannelInfo returns a channel with its persisted member count.
func ChannelInfo(channels ChannelDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
			return
		}
		ctx := c.Request.Context()
		ch, err := channels.GetChannel(ctx, domain.ChannelID(id))
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Int64("channel", id).Msg("get channel")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channel"})
			return
		}
		n, err := channels.CountMembers(ctx, ch.ID)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Int64("channel", id).Msg("count members")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channel"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"channel": ch, "memberCount": n})
	}
}

// Rooms lists the live transport rooms and how many connections sit in each.
func Rooms(hub *app.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": hub.Rooms()})
	}
}
