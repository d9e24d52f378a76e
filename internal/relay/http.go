package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
)

// DefaultBaseURL is the Cloudflare Calls API root.
const DefaultBaseURL = "https://rtc.live.cloudflare.com/v1"

const maxBrokerBody = 1 << 20

// brokerRequest is the envelope the broker expects.
type brokerRequest struct {
	SessionDescription *webrtc.SessionDescription `json:"sessionDescription,omitempty"`
	Tracks             json.RawMessage            `json:"tracks,omitempty"`
}

// brokerResponse is the subset of the broker's reply the relay reads.
type brokerResponse struct {
	SessionID          string                     `json:"sessionId,omitempty"`
	SessionDescription *webrtc.SessionDescription `json:"sessionDescription,omitempty"`
}

// HTTPBroker talks to a Cloudflare-Calls-shaped HTTP API:
//
//	POST {base}/apps/{app}/sessions/new
//	POST {base}/apps/{app}/sessions/{id}/tracks/new
//	PUT  {base}/apps/{app}/sessions/{id}/renegotiate
type HTTPBroker struct {
	BaseURL    string
	AppID      string
	Token      string
	HTTPClient *http.Client
}

// NewHTTPBroker creates a broker client.
func NewHTTPBroker(baseURL, appID, token string) *HTTPBroker {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPBroker{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AppID:      appID,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSession opens a broker session. With tracks, the session is created
// empty and the offer is sent along with the tracks; without, the offer goes
// with session creation.
func (b *HTTPBroker) CreateSession(ctx context.Context, req SessionRequest) (*Response, error) {
	desc := description(req, webrtc.SDPTypeOffer)

	if !req.hasTracks() {
		resp, err := b.do(ctx, "create", http.MethodPost, b.appPath("sessions", "new"), brokerRequest{SessionDescription: desc})
		return resp, err
	}

	created, err := b.do(ctx, "create", http.MethodPost, b.appPath("sessions", "new"), brokerRequest{})
	if err != nil {
		return nil, err
	}
	if created.Status/100 != 2 || created.SessionID == "" {
		return created, nil
	}

	resp, err := b.do(ctx, "tracks", http.MethodPost,
		b.appPath("sessions", created.SessionID, "tracks", "new"),
		brokerRequest{SessionDescription: desc, Tracks: req.Tracks})
	if err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = created.SessionID
	}
	return resp, nil
}

// Renegotiate updates an existing session. New tracks are added with their
// offer; otherwise the description is sent to the renegotiate endpoint.
func (b *HTTPBroker) Renegotiate(ctx context.Context, sessionID string, req SessionRequest) (*Response, error) {
	if sessionID == "" {
		return nil, ErrMissingID
	}

	if req.hasTracks() {
		return b.do(ctx, "tracks", http.MethodPost,
			b.appPath("sessions", sessionID, "tracks", "new"),
			brokerRequest{SessionDescription: description(req, webrtc.SDPTypeOffer), Tracks: req.Tracks})
	}

	return b.do(ctx, "renegotiate", http.MethodPut,
		b.appPath("sessions", sessionID, "renegotiate"),
		brokerRequest{SessionDescription: description(req, webrtc.SDPTypeAnswer)})
}

func (b *HTTPBroker) appPath(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "apps", url.PathEscape(b.AppID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return b.BaseURL + "/" + strings.Join(escaped, "/")
}

func (b *HTTPBroker) do(ctx context.Context, op, method, endpoint string, body brokerRequest) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.Token)
	}

	httpResp, err := b.HTTPClient.Do(httpReq)
	if err != nil {
		metrics.RelayRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	metrics.RelayRequests.WithLabelValues(op, fmt.Sprintf("%d", httpResp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBrokerBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	resp := &Response{Status: httpResp.StatusCode}

	var env brokerResponse
	if err := json.Unmarshal(raw, &env); err == nil {
		resp.SessionID = env.SessionID
		if env.SessionDescription != nil {
			resp.SDP = env.SessionDescription.SDP
		}
	}
	if resp.SDP == "" && len(raw) > 0 && json.Valid(raw) {
		resp.Raw = raw
	}

	return resp, nil
}

func description(req SessionRequest, fallback webrtc.SDPType) *webrtc.SessionDescription {
	t := fallback
	if req.Type != "" {
		t = webrtc.NewSDPType(req.Type)
	}
	return &webrtc.SessionDescription{Type: t, SDP: req.SDP}
}
