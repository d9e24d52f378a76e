// Package relay forwards session negotiation to an external real-time media
// broker. It is stateless and shares nothing with the room mailboxes.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/sdp/v3"
)

var (
	ErrMissingSDP  = errors.New("sdp is required")
	ErrInvalidSDP  = errors.New("invalid sdp")
	ErrMissingID   = errors.New("session id is required")
	ErrUnavailable = errors.New("broker unavailable")
)

// SessionRequest is what clients send: an SDP plus an optional track list
// that is forwarded to the broker untouched.
type SessionRequest struct {
	Type   string          `json:"type,omitempty"` // "offer" (default) or "answer"
	SDP    string          `json:"sdp"`
	Tracks json.RawMessage `json:"tracks,omitempty"`
}

// Response is the broker's answer, reduced to what clients need. Status is
// the broker's HTTP status, passed through unchanged. When the broker sent no
// session description, Raw holds its body verbatim.
type Response struct {
	Status    int
	SessionID string
	SDP       string
	Raw       json.RawMessage
}

// Broker is the media broker's session API.
type Broker interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Response, error)
	Renegotiate(ctx context.Context, sessionID string, req SessionRequest) (*Response, error)
}

// Validate checks the request carries a parseable session description.
// The SDP itself is forwarded verbatim; parsing only rejects garbage early.
func (r SessionRequest) Validate() error {
	if r.SDP == "" {
		return ErrMissingSDP
	}
	switch r.Type {
	case "", "offer", "answer":
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidSDP, r.Type)
	}

	var parsed sdp.SessionDescription
	if err := parsed.UnmarshalString(r.SDP); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSDP, err)
	}
	return nil
}

func (r SessionRequest) hasTracks() bool {
	return len(r.Tracks) > 0 && string(r.Tracks) != "null"
}
