package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"river-strike/internal/config"
)

// RateLimitConfig sets the per-client token bucket for HTTP requests.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleAfter         time.Duration // buckets unused this long are dropped
}

// DefaultRateLimitConfig allows a 60 Hz input poller with headroom.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	IdleAfter:         10 * time.Minute,
}

// RateLimitFromServer derives limiter settings from the server config.
func RateLimitFromServer(cfg config.ServerConfig) RateLimitConfig {
	rl := DefaultRateLimitConfig
	if cfg.RequestsPerSec > 0 {
		rl.RequestsPerSecond = cfg.RequestsPerSec
	}
	if cfg.Burst > 0 {
		rl.Burst = cfg.Burst
	}
	return rl
}

// LimiterStats is the request limiter section of /api/stats.
type LimiterStats struct {
	TrackedClients int    `json:"trackedClients"`
	Rejected       uint64 `json:"rejected"`
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// RequestLimiter throttles HTTP callers by client IP. A janitor goroutine
// drops buckets that have been idle for IdleAfter.
type RequestLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*clientBucket

	rejected atomic.Uint64
	done     chan struct{}
	stopOnce sync.Once
}

// NewRequestLimiter starts a limiter and its janitor. Call Stop to end it.
func NewRequestLimiter(cfg RateLimitConfig) *RequestLimiter {
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = DefaultRateLimitConfig.IdleAfter
	}
	l := &RequestLimiter{
		cfg:     cfg,
		buckets: make(map[string]*clientBucket),
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Stop ends the janitor. Safe to call more than once.
func (l *RequestLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *RequestLimiter) janitor() {
	ticker := time.NewTicker(l.cfg.IdleAfter / 2)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep(time.Now())
		}
	}
}

// sweep drops idle buckets and returns how many went.
func (l *RequestLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-l.cfg.IdleAfter)

	l.mu.Lock()
	removed := 0
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
			removed++
		}
	}
	tracked := len(l.buckets)
	l.mu.Unlock()

	UpdateRateLimitClients(tracked)
	return removed
}

// Allow spends one token from the caller's bucket.
func (l *RequestLimiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	allowed := b.tokens.AllowN(now, 1)
	tracked := len(l.buckets)
	l.mu.Unlock()

	if !ok {
		UpdateRateLimitClients(tracked)
	}
	if !allowed {
		l.rejected.Add(1)
	}
	return allowed
}

// Stats reports live buckets and lifetime rejections.
func (l *RequestLimiter) Stats() LimiterStats {
	l.mu.Lock()
	tracked := len(l.buckets)
	l.mu.Unlock()
	return LimiterStats{TrackedClients: tracked, Rejected: l.rejected.Load()}
}

// Middleware answers 429 once a caller's bucket is empty.
func (l *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP picks the caller address: the first X-Forwarded-For hop, then
// X-Real-IP, then the socket peer. Proxy headers are trusted as sent, so
// the service belongs behind a proxy that overwrites them.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// SlotLimiter caps concurrent websocket connections per client IP.
type SlotLimiter struct {
	max int

	mu    sync.Mutex
	slots map[string]int
}

// NewSlotLimiter allows perIP open sockets per IP.
func NewSlotLimiter(perIP int) *SlotLimiter {
	return &SlotLimiter{max: perIP, slots: make(map[string]int)}
}

// Acquire reserves a slot for ip. It fails when ip already holds max.
func (s *SlotLimiter) Acquire(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots[ip] >= s.max {
		return false
	}
	s.slots[ip]++
	UpdateWSClientIPs(len(s.slots))
	return true
}

// Release frees one slot. An IP with no slots left is forgotten.
func (s *SlotLimiter) Release(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n := s.slots[ip]; {
	case n <= 1:
		delete(s.slots, ip)
	default:
		s.slots[ip] = n - 1
	}
	UpdateWSClientIPs(len(s.slots))
}

// OriginPolicy decides which browser origins may open websockets.
// Any localhost origin is always allowed.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy builds a policy from exact origins.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		p.allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return p
}

// Allowed checks an Origin header value.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	_, ok := p.allowed[strings.TrimSuffix(origin, "/")]
	return ok
}
