package ws

import (
	"encoding/json"
	"fmt"

	"github.com/Wyydra/duet/internal/core/domain"
)

const (
	FrameError = "error"
)

// Inbound is what a browser sends over the socket.
type Inbound struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is what the server pushes to a browser.
type Outbound struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	Peer      string          `json:"peer,omitempty"`
	Initiator *bool           `json:"initiator,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Event converts a frame into a core event on behalf of id. Connect and
// disconnect are driven by the socket lifecycle and rejected here.
func (in Inbound) Event(id domain.Identity) (domain.Event, error) {
	kind := domain.EventKind(in.Type)
	switch kind {
	case domain.EventStartSearch, domain.EventOffer, domain.EventAnswer,
		domain.EventCandidate, domain.EventEndCall, domain.EventHeartbeat:
	default:
		return domain.Event{}, fmt.Errorf("frame type %q: %w", in.Type, domain.ErrUnknownEvent)
	}

	ev := domain.Event{
		Kind:     kind,
		Identity: id,
	}
	if in.RoomID != "" {
		roomID, err := domain.ParseRoomID(in.RoomID)
		if err != nil {
			return domain.Event{}, fmt.Errorf("room id %q: %w", in.RoomID, domain.ErrRoomNotFound)
		}
		ev.RoomID = roomID
	}
	if sk, ok := kind.SignalKind(); ok {
		ev.Signal = domain.NewSignal(sk, in.Payload)
	}
	return ev, nil
}

func OutboundFrom(n domain.Notification) Outbound {
	out := Outbound{
		Type:   string(n.Kind),
		RoomID: n.RoomID.String(),
	}
	switch n.Kind {
	case domain.NotifyPairingStart:
		initiator := n.Initiator
		out.Initiator = &initiator
		out.Peer = n.Peer.String()
	case domain.NotifyRelayedMessage:
		out.Kind = string(n.Signal.Kind)
		out.Payload = n.Signal.Payload
	case domain.NotifyCallEnded:
		out.Reason = string(n.Reason)
	}
	return out
}

func ErrorFrame(err error) Outbound {
	return Outbound{
		Type:  FrameError,
		Error: err.Error(),
	}
}
