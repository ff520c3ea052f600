package domain

import "errors"

var (
	// ErrAuthRejected means no verified identity was presented on connect.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrInvalidMessageShape is a malformed send payload.
	ErrInvalidMessageShape = errors.New("invalid message shape")
	// ErrPersistence wraps any store failure.
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")
)
