package domain

type NotificationKind string

const (
	NotifyPairingStart   NotificationKind = "pairing_start"
	NotifyRelayedMessage NotificationKind = "relayed_message"
	NotifyCallEnded      NotificationKind = "call_ended"
)

type EndReason string

const (
	ReasonHangup           EndReason = "hangup"
	ReasonPeerDisconnected EndReason = "peer_disconnected"
	ReasonPeerTimeout      EndReason = "peer_timeout"
)

// Notification is an outbound message addressed to a single identity.
type Notification struct {
	Kind   NotificationKind
	To     Identity
	RoomID RoomID

	// pairing_start
	Peer      Identity
	Initiator bool

	// relayed_message
	Signal Signal

	// call_ended
	Reason EndReason
}

func PairingStart(to Identity, roomID RoomID, peer Identity, initiator bool) Notification {
	return Notification{
		Kind:      NotifyPairingStart,
		To:        to,
		RoomID:    roomID,
		Peer:      peer,
		Initiator: initiator,
	}
}

func RelayedMessage(to Identity, roomID RoomID, signal Signal) Notification {
	return Notification{
		Kind:   NotifyRelayedMessage,
		To:     to,
		RoomID: roomID,
		Signal: signal,
	}
}

func CallEnded(to Identity, roomID RoomID, reason EndReason) Notification {
	return Notification{
		Kind:   NotifyCallEnded,
		To:     to,
		RoomID: roomID,
		Reason: reason,
	}
}
