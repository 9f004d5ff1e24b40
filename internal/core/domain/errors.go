package domain

import "errors"

var (
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyInRoom   = errors.New("already in a room")
	ErrNoActivePeer    = errors.New("no active peer")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotFound        = errors.New("not found")
	ErrInvalidSignal   = errors.New("invalid signal type")
	ErrUnknownEvent    = errors.New("unknown event")
)
