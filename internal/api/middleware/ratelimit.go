package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
)

// RateLimit is one limiter rule. Pattern is "METHOD path"; a path ending in
// "/" (other than the root) matches by prefix, anything else exactly. Key
// picks the bucket a request is counted in; requests it returns "" for are
// not limited by the rule.
type RateLimit struct {
	Pattern  string
	Requests int
	Window   time.Duration
	Key      func(r *http.Request) string
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool     // Enable auto-blocking after repeated violations
}

// DefaultLimits sizes the mailbox routes for peers polling about once a
// second, with headroom for several peers behind one NAT. Writes are also
// bounded per room so a single room cannot be flooded from many addresses.
var DefaultLimits = []RateLimit{
	{"POST /", 120, time.Minute, ipKey},
	{"POST /", 600, time.Minute, roomKey},
	{"POST /signal", 120, time.Minute, ipKey},
	{"POST /signal", 600, time.Minute, roomKey},
	{"GET /", 600, time.Minute, ipKey},
	{"GET /signal", 600, time.Minute, ipKey},
	{"POST /relay/sessions", 30, time.Minute, ipKey},
	{"PUT /relay/sessions/", 60, time.Minute, ipKey},
}

const (
	violationThreshold = 10
	violationWindow    = time.Hour
	autoBlockDuration  = 24 * time.Hour
)

// decision is the outcome of counting one request against a rule.
type decision struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

// RateLimiter enforces sliding window limits kept in Redis sorted sets.
type RateLimiter struct {
	client           *redis.Client
	limits           []RateLimit
	logger           zerolog.Logger
	whitelist        []*net.IPNet
	whitelistIPs     map[string]bool
	autoBlockEnabled bool
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		client:           client,
		limits:           DefaultLimits,
		logger:           logger,
		whitelistIPs:     make(map[string]bool),
		autoBlockEnabled: cfg.AutoBlockEnabled,
	}

	for _, entry := range cfg.Whitelist {
		if !strings.Contains(entry, "/") {
			rl.whitelistIPs[entry] = true
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
			continue
		}
		rl.whitelist = append(rl.whitelist, ipNet)
	}

	if len(cfg.Whitelist) > 0 {
		logger.Info().
			Int("ips", len(rl.whitelistIPs)).
			Int("cidrs", len(rl.whitelist)).
			Msg("rate limit whitelist configured")
	}

	return rl
}

func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	// Check Fly.io header first
	if ip := r.Header.Get("Fly-Client-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func ipKey(r *http.Request) string {
	return "ip:" + RealIP(r)
}

// roomKey buckets by target room: the room query parameter, or the "room"
// field of a JSON body. The body is restored for the handler.
func roomKey(r *http.Request) string {
	if room := r.URL.Query().Get("room"); room != "" {
		return "room:" + room
	}
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	data, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var peek struct {
		Room string `json:"room"`
	}
	if json.Unmarshal(data, &peek) != nil || peek.Room == "" {
		return ""
	}
	return "room:" + peek.Room
}

// count records one request in the window at key and reports whether it
// fits under limit. Redis errors fail open.
func (rl *RateLimiter) count(ctx context.Context, key string, limit int, window time.Duration) decision {
	now := time.Now()
	resetAt := now.Add(window)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, 2*window)

	if _, err := pipe.Exec(ctx); err != nil {
		// an unavailable limiter must not take signaling down
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return decision{allowed: true, remaining: limit, resetAt: resetAt}
	}

	n := int(card.Val())
	return decision{
		allowed:   n < limit,
		remaining: max(limit-n-1, 0),
		resetAt:   resetAt,
	}
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)
		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.isBlocked(r.Context(), ip) {
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			jsonError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		for _, limit := range matchLimits(rl.limits, r.Method+" "+r.URL.Path) {
			bucket := limit.Key(r)
			if bucket == "" {
				continue
			}

			d := rl.count(r.Context(), "ratelimit:"+bucket+":"+limit.Pattern, limit.Requests, limit.Window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

			if !d.allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(d.resetAt).Seconds())))
				rl.trackViolation(r.Context(), ip)
				metrics.RateLimitHits.WithLabelValues(limit.Pattern).Inc()

				rl.logger.Warn().
					Str("type", "security").
					Str("event", "rate_limit_exceeded").
					Str("ip", ip).
					Str("bucket", bucket).
					Str("endpoint", r.URL.Path).
					Msg("rate limit exceeded")

				jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// matchLimits returns every rule matching key ("METHOD path"), in order.
func matchLimits(limits []RateLimit, key string) []RateLimit {
	var out []RateLimit
	for _, l := range limits {
		p := l.Pattern
		// "METHOD /" is the root route, not a catch-all
		prefix := strings.HasSuffix(p, "/") && !strings.HasSuffix(p, " /")
		if (prefix && strings.HasPrefix(key, p)) || (!prefix && key == p) {
			out = append(out, l)
		}
	}
	return out
}

// trackViolation counts limit violations per IP and blocks repeat offenders.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.autoBlockEnabled {
		return
	}

	key := "violations:ip:" + ip
	n, _ := rl.client.Incr(ctx, key).Result()
	rl.client.Expire(ctx, key, violationWindow)

	if n >= violationThreshold {
		rl.client.Set(ctx, blockKey(ip), "repeated rate limit violations", autoBlockDuration)
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", n).
			Msg("IP auto-blocked for repeated violations")
	}
}

func (rl *RateLimiter) isBlocked(ctx context.Context, ip string) bool {
	n, _ := rl.client.Exists(ctx, blockKey(ip)).Result()
	return n > 0
}

func blockKey(ip string) string {
	return "blocked:ip:" + ip
}
