package core

import (
	"github.com/dkeye/talks/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SentTo  int
	Dropped []Session
}

// RoomService is a named set of connections.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	Len() int
	Connections() []ConnID

	Add(s Session)
	Remove(id ConnID) bool
	// Publish sends f to every connection except those in exclude.
	Publish(f Frame, exclude map[ConnID]struct{}) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	Connections int             `json:"connection_count"`
}
