package core

import "github.com/dkeye/talks/internal/domain"

// session implements Session by pairing identity + transport.
type session struct {
	id       ConnID
	identity *domain.Identity
	signal   SignalConnection
}

func NewSession(id ConnID, identity *domain.Identity, signal SignalConnection) Session {
	return &session{id: id, identity: identity, signal: signal}
}

func (s *session) ID() ConnID                 { return s.id }
func (s *session) Identity() *domain.Identity { return s.identity }
func (s *session) Signal() SignalConnection   { return s.signal }
