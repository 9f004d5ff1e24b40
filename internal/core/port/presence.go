package port

import (
	"time"

	"github.com/Wyydra/duet/internal/core/domain"
)

type PresenceRegistry interface {
	Register(id domain.Identity)
	SetStatus(id domain.Identity, status domain.Status) error
	Get(id domain.Identity) (domain.PresenceEntry, error)
	FindWaiting(excluding domain.Identity) (domain.Identity, bool)
	Remove(id domain.Identity)
	Touch(id domain.Identity) error
	Stale(cutoff time.Time) []domain.Identity
	Len() int
}
