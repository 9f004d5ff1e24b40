package domain

// EventKind enumerates everything a connection can ask of the core.
type EventKind string

const (
	EventConnect     EventKind = "connect"
	EventStartSearch EventKind = "start_search"
	EventOffer       EventKind = "offer"
	EventAnswer      EventKind = "answer"
	EventCandidate   EventKind = "candidate"
	EventEndCall     EventKind = "end_call"
	EventDisconnect  EventKind = "disconnect"
	EventHeartbeat   EventKind = "heartbeat"
)

// Event is an inbound request from one connected identity.
// RoomID and Signal are only set for the kinds that need them.
type Event struct {
	Kind     EventKind
	Identity Identity
	RoomID   RoomID
	Signal   Signal
}

// SignalKind maps offer/answer/candidate events to the signal they carry.
func (k EventKind) SignalKind() (SignalKind, bool) {
	switch k {
	case EventOffer:
		return SignalOffer, true
	case EventAnswer:
		return SignalAnswer, true
	case EventCandidate:
		return SignalCandidate, true
	}
	return "", false
}
