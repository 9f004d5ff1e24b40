package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/rs/zerolog/hlog"
)

// apiResponse is the envelope every HTTP surface endpoint answers with.
type apiResponse struct {
	Success   bool   `json:"success"`
	RoomID    string `json:"roomId,omitempty"`
	Target    string `json:"target,omitempty"`
	Initiator *bool  `json:"initiator,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// identified accepts the original clients' "email" field as well.
type identified struct {
	Identity string `json:"identity"`
	Email    string `json:"email"`
}

func (i identified) id() domain.Identity {
	if i.Identity != "" {
		return domain.Identity(i.Identity)
	}
	return domain.Identity(i.Email)
}

type createRoomRequest struct {
	identified
}

type signalRequest struct {
	identified
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

type endCallRequest struct {
	identified
	RoomID string `json:"roomId"`
}

const signalDisconnect = "disconnect"

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}
	id := req.id()
	if !id.Valid() {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "identity is required"})
		return
	}

	res, err := h.CallService.Search(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !res.Paired {
		writeJSON(w, http.StatusOK, apiResponse{Success: false, Message: "No peers available"})
		return
	}
	initiator := res.Initiator
	writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		RoomID:    res.RoomID.String(),
		Target:    res.Peer.String(),
		Initiator: &initiator,
	})
}

func (h *Handler) Signal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if !decode(w, r, &req) {
		return
	}
	id := req.id()
	if !id.Valid() {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "identity is required"})
		return
	}

	if req.Type == signalDisconnect {
		if err := h.CallService.Disconnect(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
		return
	}

	kind := domain.SignalKind(req.Type)
	if !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "Invalid signal type"})
		return
	}
	roomID, err := domain.ParseRoomID(req.RoomID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Error: "No peer available"})
		return
	}

	target, err := h.CallService.Relay(r.Context(), roomID, id, domain.NewSignal(kind, req.Data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Target: target.String()})
}

func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	var req endCallRequest
	if !decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.RoomID != "":
		roomID, perr := domain.ParseRoomID(req.RoomID)
		if perr != nil {
			// Never created here, so there is nothing to tear down.
			writeJSON(w, http.StatusOK, apiResponse{Success: true})
			return
		}
		err = h.CallService.EndCall(r.Context(), roomID, req.id())
	case req.id().Valid():
		err = h.CallService.EndCallFor(r.Context(), req.id())
	default:
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "roomId or identity is required"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"
	switch {
	case errors.Is(err, domain.ErrNoActivePeer):
		status, msg = http.StatusNotFound, "No peer available"
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownIdentity):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyInRoom):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidSignal),
		errors.Is(err, domain.ErrUnknownEvent):
		status, msg = http.StatusBadRequest, err.Error()
	}
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("Unexpected failure")
	}
	writeJSON(w, status, apiResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
