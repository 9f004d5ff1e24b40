package memory

import (
	"sync"
	"time"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/Wyydra/duet/internal/core/port"
)

var _ port.PresenceRegistry = (*Registry)(nil)

type Option func(*Registry)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry keeps one presence entry per connected identity.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.Identity]*domain.PresenceEntry
	seq     uint64
	now     func() time.Time
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[domain.Identity]*domain.PresenceEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Register(id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.LastActive = r.now()
		return
	}
	r.seq++
	r.entries[id] = &domain.PresenceEntry{
		Identity:   id,
		Status:     domain.StatusIdle,
		LastActive: r.now(),
		Seq:        r.seq,
	}
}

func (r *Registry) SetStatus(id domain.Identity, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return domain.ErrUnknownIdentity
	}
	if e.Status != status {
		r.seq++
		e.Seq = r.seq
	}
	e.Status = status
	e.LastActive = r.now()
	return nil
}

func (r *Registry) Get(id domain.Identity) (domain.PresenceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return domain.PresenceEntry{}, domain.ErrNotFound
	}
	return *e, nil
}

// FindWaiting returns the identity that has been searching the longest.
func (r *Registry) FindWaiting(excluding domain.Identity) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *domain.PresenceEntry
	for id, e := range r.entries {
		if id == excluding || e.Status != domain.StatusSearching {
			continue
		}
		if best == nil || e.Seq < best.Seq {
			best = e
		}
	}
	if best == nil {
		return "", false
	}
	return best.Identity, true
}

func (r *Registry) Remove(id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Touch(id domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return domain.ErrUnknownIdentity
	}
	e.LastActive = r.now()
	return nil
}

// Stale lists identities whose last activity is before cutoff.
func (r *Registry) Stale(cutoff time.Time) []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []domain.Identity
	for id, e := range r.entries {
		if e.LastActive.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
