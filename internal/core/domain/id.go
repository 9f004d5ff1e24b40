package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is the client supplied handle. It is only unique among
// currently connected clients.
type Identity string

func (id Identity) String() string {
	return string(id)
}

func (id Identity) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

type RoomID uuid.UUID

func NewRoomID() RoomID {
	return RoomID(uuid.New())
}

func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(id), nil
}

func (id RoomID) String() string {
	return uuid.UUID(id).String()
}

func (id RoomID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id RoomID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *RoomID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
