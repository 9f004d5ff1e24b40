package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Wyydra/duet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/rs/zerolog/log"
)

// ServeWS upgrades the request and runs one client session. The identity
// comes from the "identity" query parameter.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := domain.Identity(r.URL.Query().Get("identity"))
	if !id.Valid() {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "identity is required"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	// The request context dies with the handler; sessions outlive nothing
	// but the socket, so events use a detached context.
	ctx := context.WithoutCancel(r.Context())
	l := log.With().Str("identity", id.String()).Logger()

	client := ws.NewClient(id, conn, h.sendBuffer)
	h.Hub.Register(client)
	sess, err := h.CallService.Attach(ctx, id)
	if err != nil {
		l.Error().Err(err).Msg("Attach failed")
		h.Hub.Unregister(client)
		conn.Close()
		return
	}
	l.Info().Msg("New client connected")

	go client.WritePump()

	client.ReadPump(func(in ws.Inbound) {
		ev, err := in.Event(id)
		if err == nil {
			err = h.CallService.Handle(ctx, ev)
		}
		if err != nil {
			l.Warn().Err(err).Str("type", in.Type).Msg("Failed to handle frame")
			if qerr := client.Enqueue(ws.ErrorFrame(err)); qerr != nil && !errors.Is(qerr, ws.ErrClientClosed) {
				l.Warn().Err(qerr).Msg("Could not report error to client")
			}
		}
	})

	l.Info().Msg("Client disconnected")
	// A replaced or dropped client is no longer current in the hub, and the
	// session check covers a reconnect racing this cleanup.
	if h.Hub.Unregister(client) {
		h.CallService.Detach(ctx, id, sess)
	}
}
