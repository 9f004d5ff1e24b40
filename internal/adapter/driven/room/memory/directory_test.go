package memory

import (
	"errors"
	"testing"

	presence "github.com/Wyydra/duet/internal/adapter/driven/presence/memory"
	"github.com/Wyydra/duet/internal/core/domain"
)

func newTestDirectory(ids ...domain.Identity) *Directory {
	reg := presence.NewRegistry()
	for _, id := range ids {
		reg.Register(id)
	}
	return NewDirectory(reg)
}

func TestCreateAndLookup(t *testing.T) {
	d := newTestDirectory("alice", "bob")

	roomID, err := d.Create("alice", "bob")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	peer, err := d.PeerOf(roomID, "alice")
	if err != nil || peer != "bob" {
		t.Errorf("PeerOf(alice) = %q, %v; want bob", peer, err)
	}
	peer, err = d.PeerOf(roomID, "bob")
	if err != nil || peer != "alice" {
		t.Errorf("PeerOf(bob) = %q, %v; want alice", peer, err)
	}

	for _, id := range []domain.Identity{"alice", "bob"} {
		got, ok := d.RoomOf(id)
		if !ok || got != roomID {
			t.Errorf("RoomOf(%s) = %s, %v; want %s", id, got, ok, roomID)
		}
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}
}

func TestPeerOfNotFound(t *testing.T) {
	d := newTestDirectory("alice", "bob", "eve")
	roomID, err := d.Create("alice", "bob")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.PeerOf(roomID, "eve"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("non-member err = %v, want ErrNotFound", err)
	}
	if _, err := d.PeerOf(domain.NewRoomID(), "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown room err = %v, want ErrNotFound", err)
	}
}

func TestCreateRejects(t *testing.T) {
	d := newTestDirectory("alice", "bob", "carol")
	if _, err := d.Create("alice", "bob"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		a, b domain.Identity
		want error
	}{
		{"same member", "carol", "carol", domain.ErrInvalidState},
		{"unregistered", "carol", "ghost", domain.ErrUnknownIdentity},
		{"first busy", "alice", "carol", domain.ErrAlreadyInRoom},
		{"second busy", "carol", "bob", domain.ErrAlreadyInRoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Create(tt.a, tt.b); !errors.Is(err, tt.want) {
				t.Errorf("Create(%s, %s) err = %v, want %v", tt.a, tt.b, err, tt.want)
			}
		})
	}
	if d.Len() != 1 {
		t.Errorf("failed creates leaked rooms: Len = %d", d.Len())
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	d := newTestDirectory("alice", "bob")
	roomID, err := d.Create("alice", "bob")
	if err != nil {
		t.Fatal(err)
	}

	members, ok := d.Destroy(roomID)
	if !ok || len(members) != 2 {
		t.Fatalf("Destroy = %v, %v", members, ok)
	}
	if _, ok := d.RoomOf("alice"); ok {
		t.Error("alice still indexed after destroy")
	}
	if members, ok := d.Destroy(roomID); ok || members != nil {
		t.Errorf("second Destroy = %v, %v; want nil, false", members, ok)
	}

	// Both members are free to pair again.
	if _, err := d.Create("bob", "alice"); err != nil {
		t.Errorf("re-pair after destroy: %v", err)
	}
}
