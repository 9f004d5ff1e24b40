package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Wyydra/duet/internal/config"
	"github.com/Wyydra/duet/internal/core/domain"
)

func TestDeliverToConnectedClient(t *testing.T) {
	h := NewHub()
	c := NewClient("bob", nil, 4)
	h.Register(c)

	roomID := domain.NewRoomID()
	sig := domain.NewSignal(domain.SignalOffer, json.RawMessage(`{"sdp":"x"}`))
	if err := h.Deliver(context.Background(), domain.RelayedMessage("bob", roomID, sig)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	got := <-c.send
	if got.Type != string(domain.NotifyRelayedMessage) || got.Kind != "offer" || string(got.Payload) != `{"sdp":"x"}` {
		t.Errorf("frame = %+v", got)
	}
	if got.RoomID != roomID.String() {
		t.Errorf("room = %s, want %s", got.RoomID, roomID)
	}
}

func TestDeliverUnknown(t *testing.T) {
	h := NewHub()
	err := h.Deliver(context.Background(), domain.CallEnded("ghost", domain.NewRoomID(), domain.ReasonHangup))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestDeliverBufferFull(t *testing.T) {
	h := NewHub()
	c := NewClient("bob", nil, 1)
	h.Register(c)

	n := domain.CallEnded("bob", domain.NewRoomID(), domain.ReasonHangup)
	if err := h.Deliver(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if err := h.Deliver(context.Background(), n); !errors.Is(err, ErrSendBufferFull) {
		t.Errorf("err = %v, want ErrSendBufferFull", err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	h := NewHub()
	old := NewClient("alice", nil, 1)
	fresh := NewClient("alice", nil, 1)

	if prev := h.Register(old); prev != nil {
		t.Fatalf("first register returned %v", prev)
	}
	if prev := h.Register(fresh); prev != old {
		t.Fatalf("replacement returned %v, want old client", prev)
	}
	if err := old.Enqueue(Outbound{}); !errors.Is(err, ErrClientClosed) {
		t.Errorf("old client still open: %v", err)
	}

	if h.Unregister(old) {
		t.Error("unregistering replaced client reported current")
	}
	if h.Len() != 1 {
		t.Fatalf("Len = %d, want 1", h.Len())
	}
	if !h.Unregister(fresh) {
		t.Error("unregistering current client reported stale")
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestDrop(t *testing.T) {
	h := NewHub()
	c := NewClient("alice", nil, 1)
	h.Register(c)

	if !h.Drop("alice") {
		t.Fatal("Drop of connected client reported nothing closed")
	}
	if err := c.Enqueue(Outbound{}); !errors.Is(err, ErrClientClosed) {
		t.Errorf("dropped client still open: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
	if h.Unregister(c) {
		t.Error("unregistering dropped client reported current")
	}
	if h.Drop("alice") {
		t.Error("second Drop reported a close")
	}
}

func TestStaleWindowOutlastsPongWait(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Fatalf("ping period %s not below pong wait %s", pingPeriod, pongWait)
	}
	if config.MinStaleAfter < pongWait {
		t.Errorf("MinStaleAfter %s shorter than pong wait %s", config.MinStaleAfter, pongWait)
	}
}

func TestInboundEvent(t *testing.T) {
	roomID := domain.NewRoomID()
	tests := []struct {
		name    string
		in      Inbound
		want    domain.EventKind
		wantErr error
	}{
		{"search", Inbound{Type: "start_search"}, domain.EventStartSearch, nil},
		{"offer", Inbound{Type: "offer", RoomID: roomID.String(), Payload: json.RawMessage(`{}`)}, domain.EventOffer, nil},
		{"end call", Inbound{Type: "end_call"}, domain.EventEndCall, nil},
		{"connect forbidden", Inbound{Type: "connect"}, "", domain.ErrUnknownEvent},
		{"garbage room", Inbound{Type: "answer", RoomID: "nope"}, "", domain.ErrRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := tt.in.Event("alice")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ev.Kind != tt.want || ev.Identity != "alice" {
				t.Errorf("event = %+v", ev)
			}
		})
	}

	ev, _ := Inbound{Type: "candidate", RoomID: roomID.String(), Payload: json.RawMessage(`{"c":1}`)}.Event("alice")
	if ev.RoomID != roomID || ev.Signal.Kind != domain.SignalCandidate || string(ev.Signal.Payload) != `{"c":1}` {
		t.Errorf("candidate event = %+v", ev)
	}
}

func TestOutboundPairingStart(t *testing.T) {
	out := OutboundFrom(domain.PairingStart("bob", domain.NewRoomID(), "alice", false))
	if out.Initiator == nil || *out.Initiator {
		t.Fatalf("initiator = %v, want explicit false", out.Initiator)
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["initiator"] != false || m["peer"] != "alice" || m["type"] != "pairing_start" {
		t.Errorf("json = %s", b)
	}
}
