package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoinChannel(
	ctx context.Context,
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "Invalid payload")
		return
	}
	if _, err := ctl.Orch.Membership.Join(ctx, sess.Identity(), p.ChannelID, sess.ID()); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(sess.ID())).Msg("join channel")
		if errors.Is(err, domain.ErrNotFound) {
			ctl.sendError(conn, "Channel not found")
			return
		}
		ctl.sendError(conn, "Failed to join channel")
	}
}

// handleLeaveChannel leaves the channel; the connection itself stays open.
func (ctl *SignalWSController) handleLeaveChannel(
	ctx context.Context,
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p channelPayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(conn, "Invalid payload")
		return
	}
	if err := ctl.Orch.Membership.Leave(ctx, sess.Identity(), p.ChannelID, sess.ID()); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(sess.ID())).Msg("leave channel")
		ctl.sendError(conn, "Failed to leave channel")
	}
}
