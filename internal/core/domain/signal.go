package domain

import "encoding/json"

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// Signal is a negotiation message produced by the browser's real-time
// stack. Payload is never inspected.
type Signal struct {
	Kind    SignalKind
	Payload json.RawMessage
}

func NewSignal(kind SignalKind, payload json.RawMessage) Signal {
	return Signal{
		Kind:    kind,
		Payload: payload,
	}
}
