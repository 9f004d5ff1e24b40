package domain

import "testing"

func TestRoomPeer(t *testing.T) {
	r := Room{ID: NewRoomID(), MemberA: "alice", MemberB: "bob"}

	tests := []struct {
		in     Identity
		want   Identity
		wantOK bool
	}{
		{"alice", "bob", true},
		{"bob", "alice", true},
		{"carol", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Peer(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Peer(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if !r.Has("alice") || r.Has("carol") {
		t.Errorf("Has mismatch for room %+v", r)
	}
}

func TestRoomIDText(t *testing.T) {
	id := NewRoomID()
	b, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back RoomID
	if err := back.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != id {
		t.Errorf("round trip = %s, want %s", back, id)
	}
	if _, err := ParseRoomID("not-a-room"); err == nil {
		t.Error("ParseRoomID accepted garbage")
	}
	if !(RoomID{}).IsZero() || id.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestIdentityValid(t *testing.T) {
	if Identity("").Valid() || Identity("   ").Valid() {
		t.Error("blank identity reported valid")
	}
	if !Identity("a@b.c").Valid() {
		t.Error("handle reported invalid")
	}
}
