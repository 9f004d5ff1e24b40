package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/Wyydra/duet/internal/core/port"
)

var _ port.RoomDirectory = (*Directory)(nil)

// Directory tracks active rooms and the reverse identity -> room index.
// Members are validated against the presence registry on creation.
type Directory struct {
	mu       sync.RWMutex
	presence port.PresenceRegistry
	rooms    map[domain.RoomID]domain.Room
	byMember map[domain.Identity]domain.RoomID
}

func NewDirectory(presence port.PresenceRegistry) *Directory {
	return &Directory{
		presence: presence,
		rooms:    make(map[domain.RoomID]domain.Room),
		byMember: make(map[domain.Identity]domain.RoomID),
	}
}

func (d *Directory) Create(a, b domain.Identity) (domain.RoomID, error) {
	if a == b {
		return domain.RoomID{}, fmt.Errorf("room needs two distinct members, got %q twice: %w", a, domain.ErrInvalidState)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range []domain.Identity{a, b} {
		if _, err := d.presence.Get(id); err != nil {
			return domain.RoomID{}, fmt.Errorf("member %q: %w", id, domain.ErrUnknownIdentity)
		}
		if existing, ok := d.byMember[id]; ok {
			return domain.RoomID{}, fmt.Errorf("member %q in room %s: %w", id, existing, domain.ErrAlreadyInRoom)
		}
	}

	roomID := domain.NewRoomID()
	for {
		if _, taken := d.rooms[roomID]; !taken {
			break
		}
		roomID = domain.NewRoomID()
	}

	d.rooms[roomID] = domain.Room{
		ID:        roomID,
		MemberA:   a,
		MemberB:   b,
		CreatedAt: time.Now(),
	}
	d.byMember[a] = roomID
	d.byMember[b] = roomID
	return roomID, nil
}

func (d *Directory) PeerOf(roomID domain.RoomID, id domain.Identity) (domain.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return "", domain.ErrNotFound
	}
	peer, ok := room.Peer(id)
	if !ok {
		return "", domain.ErrNotFound
	}
	return peer, nil
}

func (d *Directory) RoomOf(id domain.Identity) (domain.RoomID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roomID, ok := d.byMember[id]
	return roomID, ok
}

func (d *Directory) Get(roomID domain.RoomID) (domain.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	return room, ok
}

// Destroy removes the room and hands back its members. Unknown rooms are a
// no-op since hang-up and disconnect can race to tear down the same call.
func (d *Directory) Destroy(roomID domain.RoomID) ([]domain.Identity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}
	delete(d.rooms, roomID)
	for _, id := range room.Members() {
		if d.byMember[id] == roomID {
			delete(d.byMember, id)
		}
	}
	return room.Members(), true
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
