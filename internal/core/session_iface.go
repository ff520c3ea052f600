package core

import "github.com/dkeye/talks/internal/domain"

type ConnID string

// Session binds a verified identity and its transport endpoint.
// This is what the hub stores and fans out to.
type Session interface {
	ID() ConnID
	Identity() *domain.Identity
	Signal() SignalConnection
}
