package domain

import "time"

type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusInCall    Status = "in_call"
)

func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusSearching, StatusInCall:
		return true
	}
	return false
}

type PresenceEntry struct {
	Identity   Identity
	Status     Status
	LastActive time.Time
	// Seq orders entries by the moment they last changed status.
	// FindWaiting pairs the lowest Seq first.
	Seq uint64
}
