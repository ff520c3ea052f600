package signal

import "github.com/dkeye/talks/internal/core"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.send(conn, core.EventPong, struct{}{})
}
