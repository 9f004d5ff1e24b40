package port

import "github.com/Wyydra/duet/internal/core/domain"

type RoomDirectory interface {
	Create(a, b domain.Identity) (domain.RoomID, error)
	PeerOf(roomID domain.RoomID, id domain.Identity) (domain.Identity, error)
	RoomOf(id domain.Identity) (domain.RoomID, bool)
	Get(roomID domain.RoomID) (domain.Room, bool)
	Destroy(roomID domain.RoomID) ([]domain.Identity, bool)
	Len() int
}
