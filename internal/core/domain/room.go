package domain

import "time"

// Room pairs exactly two distinct identities into a call.
type Room struct {
	ID        RoomID
	MemberA   Identity
	MemberB   Identity
	CreatedAt time.Time
}

func (r Room) Has(id Identity) bool {
	return r.MemberA == id || r.MemberB == id
}

// Peer returns the member that is not id.
func (r Room) Peer(id Identity) (Identity, bool) {
	switch id {
	case r.MemberA:
		return r.MemberB, true
	case r.MemberB:
		return r.MemberA, true
	}
	return "", false
}

func (r Room) Members() []Identity {
	return []Identity{r.MemberA, r.MemberB}
}
