package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/talks/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleMarkRead(
	ctx context.Context,
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p markReadPayload
	if err := decode(data, &p); err != nil {
		ctl.sendError(conn, "Invalid payload")
		return
	}
	if err := ctl.Orch.Receipts.MarkRead(ctx, sess.Identity().ID, p.MessageID); err != nil {
		log.Error().Err(err).Str("module", "signal").Int64("message", int64(p.MessageID)).Msg("mark read")
		ctl.sendError(conn, "Failed to mark message read")
	}
}

func (ctl *SignalWSController) handleMarkAllRead(
	ctx context.Context,
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p markAllReadPayload
	if err := decode(data, &p); err != nil {
		ctl.sendError(conn, "Invalid payload")
		return
	}
	if _, err := ctl.Orch.Receipts.MarkAllRead(ctx, sess.Identity().ID, p.SenderID); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sender", string(p.SenderID)).Msg("mark all read")
		ctl.sendError(conn, "Failed to mark messages read")
	}
}
