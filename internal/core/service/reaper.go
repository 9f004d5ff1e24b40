package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper expires identities that stopped sending anything, tearing down
// their rooms. Clients that crash without a clean disconnect would otherwise
// sit in the registry as searching or in a call forever.
type Reaper struct {
	calls      *CallService
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	quit       chan struct{}
	done       chan struct{}
}

func NewReaper(calls *CallService, interval, staleAfter time.Duration) *Reaper {
	return &Reaper{
		calls:      calls,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Enabled is false when no staleness window is configured.
func (r *Reaper) Enabled() bool {
	return r.staleAfter > 0 && r.interval > 0
}

func (r *Reaper) Run() {
	defer close(r.done)
	if !r.Enabled() {
		<-r.quit
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).Msg("Reaper started")
	for {
		select {
		case <-r.quit:
			log.Info().Msg("Stopping reaper")
			return
		case <-ticker.C:
			if n := r.Sweep(context.Background()); n > 0 {
				log.Info().Int("count", n).Msg("Reaped stale clients")
			}
		}
	}
}

// Sweep expires every identity inactive for longer than staleAfter and
// returns how many were expired.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.staleAfter)
	expired := 0
	for _, id := range r.calls.presence.Stale(cutoff) {
		if r.calls.Expire(ctx, id, cutoff) {
			expired++
		}
	}
	return expired
}

func (r *Reaper) Stop() {
	close(r.quit)
	<-r.done
}
