package http

import (
	"net/http"
	"time"

	"github.com/Wyydra/duet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/duet/internal/config"
	"github.com/Wyydra/duet/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	CallService *service.CallService
	Hub         *ws.Hub

	upgrader   websocket.Upgrader
	iceServers []webrtc.ICEServer
	sendBuffer int
}

func NewHandler(callService *service.CallService, hub *ws.Hub, cfg *config.Config) *Handler {
	h := &Handler{
		CallService: callService,
		Hub:         hub,
		iceServers:  cfg.WebRTCICEServers(),
		sendBuffer:  cfg.SendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
	return h
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/ice-servers", h.ICEServers)
	r.Get("/ws", h.ServeWS)

	r.Post("/create-room", h.CreateRoom)
	r.Post("/signal", h.Signal)
	r.Post("/end-call", h.EndCall)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.CallService.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"online":    stats.Online,
		"rooms":     stats.Rooms,
		"connected": h.Hub.Len(),
	})
}

func (h *Handler) ICEServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"iceServers": h.iceServers})
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
