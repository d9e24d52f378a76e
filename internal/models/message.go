package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Message types interpreted by the relay. Any other type string is stored
// and returned untouched.
const (
	TypeJoin      = "join"
	TypeLeave     = "leave"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
)

// Message represents a signaling message stored in a room mailbox.
//
// Room, type and clientId accept any JSON scalar and are kept as strings.
// A client timestamp is read only if it is a number and is always replaced
// on write. Top-level fields the relay does not interpret (to, sdp,
// candidate, ...) are kept in Extra and written back out unchanged.
type Message struct {
	Room      string
	Type      string
	ClientID  string
	Payload   json.RawMessage // Opaque (SDP, candidate, ...)
	Timestamp int64           // Unix ms, server assigned
	Extra     map[string]json.RawMessage
}

// IsJoin reports whether the message asks for room admission.
func (m *Message) IsJoin() bool {
	return m.Type == TypeJoin
}

// UnmarshalJSON decodes a client or stored message object.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("message must be a JSON object")
	}

	*m = Message{}
	var err error
	if m.Room, err = scalarString(fields["room"]); err != nil {
		return fmt.Errorf("room: %w", err)
	}
	if m.Type, err = scalarString(fields["type"]); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if m.ClientID, err = scalarString(fields["clientId"]); err != nil {
		return fmt.Errorf("clientId: %w", err)
	}
	if raw, ok := fields["payload"]; ok && !isNull(raw) {
		m.Payload = raw
	}
	m.Timestamp = looseMillis(fields["timestamp"])

	for _, k := range []string{"room", "type", "clientId", "payload", "timestamp"} {
		delete(fields, k)
	}
	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

// MarshalJSON encodes the message with its extra fields. Known fields win
// over an extra of the same name.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["room"] = m.Room
	out["type"] = m.Type
	out["timestamp"] = m.Timestamp
	if m.ClientID != "" {
		out["clientId"] = m.ClientID
	}
	if len(m.Payload) > 0 {
		out["payload"] = m.Payload
	}
	return json.Marshal(out)
}

// scalarString returns a JSON string's value, or the literal text of a
// number or boolean. Absent and null give "".
func scalarString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{', '[':
		return "", fmt.Errorf("must be a string, number or boolean")
	default:
		return string(raw), nil
	}
}

// looseMillis reads a numeric timestamp, truncating fractions. Anything
// else gives 0.
func looseMillis(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
