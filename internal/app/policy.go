package app

import (
	"github.com/dkeye/talks/internal/core"
	"github.com/dkeye/talks/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a connection whose outbound buffer is full.
// room is empty for sends that are not room broadcasts.
type Policy interface {
	OnBackPressure(room domain.RoomName, s core.Session) BackpressureAction
}

// SimplePolicy kicks any connection that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomName, core.Session) BackpressureAction {
	return KickConnection
}

// TolerantPolicy drops the frame and keeps the connection.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(domain.RoomName, core.Session) BackpressureAction {
	return DropFrame
}
