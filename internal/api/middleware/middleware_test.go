package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMatchLimits(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"POST /", 2},
		{"POST /signal", 2},
		{"GET /", 1},
		{"GET /signal", 1},
		{"POST /relay/sessions", 1},
		{"PUT /relay/sessions/abc", 1},
		{"GET /health", 0},
		{"GET /nope", 0},
	}
	for _, tt := range tests {
		got := matchLimits(DefaultLimits, tt.key)
		if len(got) != tt.want {
			t.Fatalf("matchLimits(%q) matched %d rules, want %d", tt.key, len(got), tt.want)
		}
		for _, l := range got {
			if !strings.HasPrefix(tt.key, l.Pattern) {
				t.Fatalf("matchLimits(%q) returned rule %q", tt.key, l.Pattern)
			}
		}
	}
}

func TestRoomKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/signal?room=r1", nil)
	if got := roomKey(r); got != "room:r1" {
		t.Fatalf("roomKey query = %q", got)
	}

	body := `{"room":"r2","type":"offer"}`
	r = httptest.NewRequest(http.MethodPost, "/signal", strings.NewReader(body))
	if got := roomKey(r); got != "room:r2" {
		t.Fatalf("roomKey body = %q", got)
	}
	rest, _ := io.ReadAll(r.Body)
	if string(rest) != body {
		t.Fatalf("body not restored: %q", rest)
	}

	r = httptest.NewRequest(http.MethodPost, "/signal", strings.NewReader(`not json`))
	if got := roomKey(r); got != "" {
		t.Fatalf("roomKey invalid body = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                 "/",
		"/signal":           "/signal",
		"/relay/sessions":   "/relay/sessions",
		"/relay/sessions/x": "/relay/sessions/:id",
		"/wp-admin":         "other",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	if got := RealIP(r); got != "10.0.0.9" {
		t.Fatalf("RealIP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := RealIP(r); got != "203.0.113.7" {
		t.Fatalf("RealIP = %q", got)
	}

	r.Header.Set("Fly-Client-IP", "198.51.100.2")
	if got := RealIP(r); got != "198.51.100.2" {
		t.Fatalf("RealIP = %q", got)
	}
}

func TestWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{
		Whitelist: []string{"10.0.0.1", "192.168.0.0/16", "not-a-cidr/99"},
	})

	for ip, want := range map[string]bool{
		"10.0.0.1":    true,
		"10.0.0.2":    false,
		"192.168.4.4": true,
		"garbage":     false,
	} {
		if got := rl.isWhitelisted(ip); got != want {
			t.Fatalf("isWhitelisted(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestValidateRequest(t *testing.T) {
	h := ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		path   string
		ct     string
		want   int
	}{
		{"json", http.MethodPost, "/", "application/json", http.StatusNoContent},
		{"text", http.MethodPost, "/", "text/plain", http.StatusNoContent},
		{"form", http.MethodPost, "/", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"traversal", http.MethodGet, "/relay/../etc", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", strings.NewReader("{}"))
			r.URL.Path = tt.path
			if tt.ct != "" {
				r.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"room":"far too long"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", w.Code)
	}
}
