package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by client IP
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int           // requests per window
	per     time.Duration // window size
}

type bucket struct {
	ts     time.Time // window start
	tokens int       // remaining requests
}

// New creates an IP-based limiter allowing max requests per window
func New(max int, per time.Duration) *Limiter {
	return &Limiter{buckets: map[string]*bucket{}, max: max, per: per}
}

// Middleware enforces the limit before calling the next handler
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}

		if !l.allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (l *Limiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[ip]
	if b == nil || now.Sub(b.ts) > l.per {
		// New window; also a cheap moment to drop stale entries
		if len(l.buckets) > 10_000 {
			l.sweep(now)
		}
		b = &bucket{ts: now, tokens: l.max}
		l.buckets[ip] = b
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// sweep removes buckets whose window has long expired; caller holds the lock
func (l *Limiter) sweep(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.ts) > 2*l.per {
			delete(l.buckets, ip)
		}
	}
}
