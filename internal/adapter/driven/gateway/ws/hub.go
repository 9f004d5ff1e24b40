package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/Wyydra/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

var _ port.Gateway = (*Hub)(nil)

var ErrNotConnected = errors.New("identity not connected")

// Hub maps identities to their live websocket client and implements
// port.Gateway on top of it.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.Identity]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[domain.Identity]*Client),
	}
}

// Register binds c to its identity. A previous client for the same identity
// is closed and returned.
func (h *Hub) Register(c *Client) *Client {
	h.mu.Lock()
	prev := h.clients[c.ID()]
	h.clients[c.ID()] = c
	count := len(h.clients)
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.Close()
		log.Warn().Str("identity", c.ID().String()).Msg("Client replaced by a newer connection")
	} else {
		prev = nil
	}
	log.Info().Str("identity", c.ID().String()).Int("count", count).Msg("Client registered")
	return prev
}

// Unregister drops c and reports whether it was still the current client
// for its identity. Replaced clients return false so their departure does
// not disconnect the newer session.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	current := h.clients[c.ID()] == c
	if current {
		delete(h.clients, c.ID())
	}
	h.mu.Unlock()

	c.Close()
	if current {
		log.Info().Str("identity", c.ID().String()).Msg("Client unregistered")
	}
	return current
}

func (h *Hub) Deliver(ctx context.Context, n domain.Notification) error {
	h.mu.RLock()
	c, ok := h.clients[n.To]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s to %q: %w", n.Kind, n.To, ErrNotConnected)
	}
	if err := c.Enqueue(OutboundFrom(n)); err != nil {
		log.Warn().Err(err).Str("identity", n.To.String()).Str("kind", string(n.Kind)).Msg("Dropping notification")
		return err
	}
	return nil
}

// Drop closes the current client of id. Its write pump sends a close frame,
// the read pump then fails and the session ends on its own.
func (h *Hub) Drop(id domain.Identity) bool {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	log.Info().Str("identity", id.String()).Msg("Client dropped")
	return true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
	log.Info().Msg("Hub stopped. Disconnected all clients.")
}
