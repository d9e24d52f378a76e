package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/eldtechnologies/roomrelay/internal/mailbox"
	"github.com/eldtechnologies/roomrelay/internal/models"
)

// WriteResponse represents a successful signal write.
type WriteResponse struct {
	Success bool `json:"success"`
}

// PostSignal stores a signaling message in its room's mailbox.
func (h *Handler) PostSignal(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if msg.Room == "" {
		h.Error(w, http.StatusBadRequest, "Missing room")
		return
	}

	if _, err := h.mailbox.Write(r.Context(), msg); err != nil {
		h.mailboxError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, WriteResponse{Success: true})
}

// GetSignals returns every live message of ?room= in arrival order.
func (h *Handler) GetSignals(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		h.Error(w, http.StatusBadRequest, "Missing room param")
		return
	}

	messages, err := h.mailbox.Read(r.Context(), room)
	if err != nil {
		h.mailboxError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, messages)
}

// mailboxError maps mailbox errors to HTTP responses.
func (h *Handler) mailboxError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mailbox.ErrInvalidRoom), errors.Is(err, mailbox.ErrMissingClientID):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mailbox.ErrRoomFull):
		h.Error(w, http.StatusForbidden, "Room is full")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("mailbox operation failed")
		h.Error(w, http.StatusInternalServerError, "store failure")
	}
}
