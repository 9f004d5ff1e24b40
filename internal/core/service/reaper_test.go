package service

import (
	"context"
	"errors"
	"testing"
	"time"

	presence "github.com/Wyydra/duet/internal/adapter/driven/presence/memory"
	room "github.com/Wyydra/duet/internal/adapter/driven/room/memory"
	"github.com/Wyydra/duet/internal/core/domain"
)

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	reg := presence.NewRegistry(presence.WithClock(clock))
	dir := room.NewDirectory(reg)
	gw := &recordingGateway{}
	svc := NewCallService(reg, dir, gw)

	for _, id := range []domain.Identity{"alice", "bob"} {
		if err := svc.Connect(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	carolSession, err := svc.Attach(ctx, "carol")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartSearch(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.StartSearch(ctx, "bob")
	if err != nil || !res.Paired {
		t.Fatalf("pairing failed: %+v, %v", res, err)
	}

	now = now.Add(2 * time.Minute)
	if err := svc.Touch("bob"); err != nil {
		t.Fatal(err)
	}
	gw.reset()

	r := NewReaper(svc, time.Second, time.Minute)
	r.now = clock
	if !r.Enabled() {
		t.Fatal("reaper disabled")
	}
	if got := r.Sweep(ctx); got != 2 {
		t.Fatalf("Sweep expired %d, want 2 (alice, carol)", got)
	}

	for _, id := range []domain.Identity{"alice", "carol"} {
		if _, err := reg.Get(id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s not expired: %v", id, err)
		}
	}
	e, err := reg.Get("bob")
	if err != nil || e.Status != domain.StatusIdle {
		t.Errorf("bob = %+v, %v; want idle", e, err)
	}
	msgs := gw.to("bob")
	if len(msgs) != 1 || msgs[0].Reason != domain.ReasonPeerTimeout {
		t.Errorf("bob notifications = %+v", msgs)
	}
	if dir.Len() != 0 {
		t.Error("stale room survived")
	}
	if d := gw.drops(); len(d) != 1 || d[0] != "carol" {
		t.Errorf("dropped = %v, want [carol]", d)
	}
	if svc.Detach(ctx, "carol", carolSession) {
		t.Error("expired session detached twice")
	}
}

func TestReaperDisabled(t *testing.T) {
	reg := presence.NewRegistry()
	svc := NewCallService(reg, room.NewDirectory(reg), &recordingGateway{})
	r := NewReaper(svc, time.Second, 0)
	if r.Enabled() {
		t.Fatal("zero staleness window should disable the reaper")
	}

	go r.Run()
	r.Stop()
}
