package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitPerMinute is the per-IP request budget for the suggestions
// endpoint (SPEC_FULL.md §6: "30 requests/minute/IP").
const RateLimitPerMinute = 30

// ipLimiter tracks a rate.Limiter per client IP, evicting entries that have
// been idle long enough that they'd be back at a full burst anyway.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorTTL = 10 * time.Minute

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	l.evictStale()
	return v.limiter.Allow()
}

// evictStale must be called with l.mu held.
func (l *ipLimiter) evictStale() {
	cutoff := time.Now().Add(-visitorTTL)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// RateLimit returns middleware enforcing perMinute requests/minute per
// client IP (go-chi's RealIP middleware must run first so r.RemoteAddr is
// the real client address behind any proxy).
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = RateLimitPerMinute
	}
	limiter := newIPLimiter(perMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.allow(ip) {
				WriteError(w, r, NewAPIError(http.StatusTooManyRequests, "rate limit exceeded", nil), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
