package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/roomrelay/internal/relay"
)

// SessionResponse is the translated broker reply.
type SessionResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	SDP       string `json:"sdp"`
}

// CreateSession forwards a new session offer to the media broker.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.broker.CreateSession(r.Context(), req)
	h.writeBrokerResponse(w, resp, err)
}

// Renegotiate forwards a renegotiation for session {id} to the media broker.
func (h *Handler) Renegotiate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.broker.Renegotiate(r.Context(), chi.URLParam(r, "id"), req)
	h.writeBrokerResponse(w, resp, err)
}

func (h *Handler) decodeSessionRequest(w http.ResponseWriter, r *http.Request) (relay.SessionRequest, bool) {
	var req relay.SessionRequest

	if h.broker == nil {
		h.Error(w, http.StatusServiceUnavailable, "media broker not configured")
		return req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// writeBrokerResponse passes the broker's status through unchanged.
func (h *Handler) writeBrokerResponse(w http.ResponseWriter, resp *relay.Response, err error) {
	if err != nil {
		if errors.Is(err, relay.ErrMissingID) {
			h.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Warn().Err(err).Msg("broker request failed")
		h.Error(w, http.StatusBadGateway, "media broker unavailable")
		return
	}

	if resp.SDP != "" {
		h.JSON(w, resp.Status, SessionResponse{SessionID: resp.SessionID, SDP: resp.SDP})
		return
	}
	if len(resp.Raw) > 0 {
		h.JSON(w, resp.Status, resp.Raw)
		return
	}
	h.JSON(w, resp.Status, map[string]string{"error": http.StatusText(resp.Status)})
}
