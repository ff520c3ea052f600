package signal

import (
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(sess core.Session, conn *WsSignalConn) {
	resp := struct {
		User         *domain.Identity `json:"user"`
		ConnectionID core.ConnID      `json:"connectionId"`
	}{
		User:         sess.Identity(),
		ConnectionID: sess.ID(),
	}
	ctl.send(conn, core.EventWhoAmI, resp)
}
