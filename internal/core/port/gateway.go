package port

import (
	"context"

	"github.com/Wyydra/duet/internal/core/domain"
)

// Gateway delivers notifications to connected clients. Delivery is fire and
// forget: an error means the notification was not queued, never that the
// client failed to process it.
type Gateway interface {
	Deliver(ctx context.Context, n domain.Notification) error
	// Drop closes the live connection of id, if any, without blocking.
	// It reports whether a connection was closed.
	Drop(id domain.Identity) bool
}
