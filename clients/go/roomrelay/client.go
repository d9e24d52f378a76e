// Package roomrelay provides a client for the roomrelay signaling mailbox.
package roomrelay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Message types understood by the relay.
const (
	TypeJoin      = "join"
	TypeLeave     = "leave"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
)

// Client is a roomrelay API client.
type Client struct {
	BaseURL    string
	ClientID   string
	HTTPClient *http.Client
}

// NewClient creates a new client posting as clientID.
func NewClient(baseURL, clientID string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		ClientID:   clientID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is a non-2xx answer from the relay.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("roomrelay error %d: %s", e.Status, e.Message)
}

// doRequest performs an HTTP request and returns the body of a 2xx answer.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, &Error{Status: resp.StatusCode, Message: errResp.Error}
	}

	return respBody, nil
}

// Message is a signaling message as stored by the relay. Extra holds any
// other top-level fields the sender included.
type Message struct {
	Room      string                     `json:"room"`
	Type      string                     `json:"type"`
	ClientID  string                     `json:"clientId,omitempty"`
	Payload   json.RawMessage            `json:"payload,omitempty"`
	Timestamp int64                      `json:"timestamp"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type wireMessage Message

// UnmarshalJSON decodes the known fields and collects the rest into Extra.
func (m *Message) UnmarshalJSON(data []byte) error {
	var known wireMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range []string{"room", "type", "clientId", "payload", "timestamp"} {
		delete(fields, k)
	}
	if len(fields) > 0 {
		known.Extra = fields
	}
	*m = Message(known)
	return nil
}

// MarshalJSON encodes the message with its extra fields inlined.
func (m Message) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(wireMessage(m))
	if err != nil || len(m.Extra) == 0 {
		return data, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Send posts a message of the given type to room. payload may be nil.
func (c *Client) Send(ctx context.Context, room, msgType string, payload any) error {
	msg := Message{Room: room, Type: msgType, ClientID: c.ClientID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/signal", msg)
	return err
}

// Join announces this client in room.
func (c *Client) Join(ctx context.Context, room string) error {
	return c.Send(ctx, room, TypeJoin, nil)
}

// Leave announces this client is leaving room.
func (c *Client) Leave(ctx context.Context, room string) error {
	return c.Send(ctx, room, TypeLeave, nil)
}

// Poll returns every live message in room, oldest first.
func (c *Client) Poll(ctx context.Context, room string) ([]Message, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/signal?room="+url.QueryEscape(room), nil)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := json.Unmarshal(respBody, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// seenRetention bounds how long a Cursor remembers a message. Nothing older
// than the relay's message TTL can show up again.
const seenRetention = 10 * time.Minute

// Cursor remembers which messages a poller has already handed out. Messages
// may share a millisecond or arrive a poll late, so it tracks identities
// rather than a timestamp high-water mark.
type Cursor struct {
	seen   map[string]int64 // identity -> timestamp
	newest int64
}

// NewCursor returns an empty cursor.
func NewCursor() *Cursor {
	return &Cursor{seen: make(map[string]int64)}
}

// Since returns the messages in a poll result that cur has not seen and
// that were not sent by this client, and records all of them in cur.
func (c *Client) Since(messages []Message, cur *Cursor) []Message {
	var fresh []Message
	for _, m := range messages {
		id, err := identity(m)
		if err != nil {
			continue
		}
		if _, ok := cur.seen[id]; ok {
			continue
		}
		cur.seen[id] = m.Timestamp
		cur.newest = max(cur.newest, m.Timestamp)

		if c.ClientID != "" && m.ClientID == c.ClientID {
			continue
		}
		fresh = append(fresh, m)
	}
	cur.prune()
	return fresh
}

func (cur *Cursor) prune() {
	horizon := cur.newest - seenRetention.Milliseconds()
	for id, ts := range cur.seen {
		if ts < horizon {
			delete(cur.seen, id)
		}
	}
}

// Len returns how many messages cur remembers.
func (cur *Cursor) Len() int {
	return len(cur.seen)
}

func identity(m Message) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SessionRequest is an SDP offer or answer for the media broker.
type SessionRequest struct {
	Type   string          `json:"type,omitempty"`
	SDP    string          `json:"sdp"`
	Tracks json.RawMessage `json:"tracks,omitempty"`
}

// SessionResponse is the broker's reply.
type SessionResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	SDP       string `json:"sdp"`
}

// CreateSession opens a media broker session with an offer.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "/relay/sessions", req)
	if err != nil {
		return nil, err
	}

	var resp SessionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Renegotiate sends an updated description for an existing session.
func (c *Client) Renegotiate(ctx context.Context, sessionID string, req SessionRequest) (*SessionResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodPut, "/relay/sessions/"+url.PathEscape(sessionID), req)
	if err != nil {
		return nil, err
	}

	var resp SessionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the relay's health report.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]CheckResult `json:"checks"`
}

// CheckResult is the result of a single dependency check.
type CheckResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health checks the relay's health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
