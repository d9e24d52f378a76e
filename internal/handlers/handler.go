package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/mailbox"
	"github.com/eldtechnologies/roomrelay/internal/relay"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	mailbox *mailbox.Mailbox
	broker  relay.Broker
	logger  zerolog.Logger
}

// NewHandler creates a new Handler. broker may be nil when no media broker
// is configured; the relay endpoints then answer 503.
func NewHandler(mb *mailbox.Mailbox, broker relay.Broker, logger zerolog.Logger) *Handler {
	return &Handler{mailbox: mb, broker: broker, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
