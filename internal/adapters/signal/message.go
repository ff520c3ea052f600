package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/talks/internal/app"
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleSendMessage(
	ctx context.Context,
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	who := sess.Identity()
	if !ctl.limiter.Allow(who.ID) {
		log.Warn().Str("module", "signal").Str("user", string(who.ID)).Msg("message rate limited")
		ctl.sendError(conn, "Too many messages")
		return
	}

	var p sendMessagePayload
	if err := decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad send payload")
		ctl.sendError(conn, "Invalid message")
		return
	}
	req := app.SendRequest{
		Draft: domain.Draft{
			Content:     p.Content,
			ChannelID:   p.ChannelID,
			RecipientID: p.RecipientID,
			IsDirect:    p.IsDirect,
		},
		TempID: p.TempID,
	}
	if _, err := ctl.Orch.Router.Send(ctx, who, sess.ID(), req); err != nil {
		if errors.Is(err, domain.ErrInvalidMessageShape) {
			log.Warn().Err(err).Str("module", "signal").Str("user", string(who.ID)).Msg("invalid message")
			ctl.sendError(conn, "Invalid message")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("user", string(who.ID)).Msg("send message")
		ctl.sendError(conn, "Failed to send message")
	}
}

func (ctl *SignalWSController) handleTyping(
	sess core.Session,
	conn *WsSignalConn,
	data json.RawMessage,
	start bool,
) {
	var p typingPayload
	if err := decode(data, &p); err != nil {
		ctl.sendError(conn, "Invalid payload")
		return
	}
	target := app.TypingTarget{ChannelID: p.ChannelID, RecipientID: p.RecipientID}
	var err error
	if start {
		err = ctl.Orch.Typing.Start(sess.Identity(), target)
	} else {
		err = ctl.Orch.Typing.Stop(sess.Identity(), target)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(sess.ID())).Bool("start", start).Msg("typing")
		ctl.sendError(conn, "Invalid typing target")
	}
}
