package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	bucketSweepInterval = 5 * time.Minute
	bucketIdleLifetime  = 10 * time.Minute
)

// ipLimiter keeps one token bucket per client IP. Idle buckets are
// swept inline from allow() so no background goroutine is needed.
type ipLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter creates a limiter refilling r tokens per second with the
// given burst. The burst also serves as the initial allowance, which
// keeps ingestion requests (several per source) usable.
func newIPLimiter(r float64, burst int) *ipLimiter {
	return &ipLimiter{
		buckets:   make(map[string]*ipBucket),
		limit:     rate.Limit(r),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > bucketSweepInterval {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketIdleLifetime {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
		b.limiter.Allow()
		b.lastSeen = now
		return true
	}

	b.lastSeen = now
	return b.limiter.Allow()
}

// rateLimitMiddleware rejects requests over the per-IP budget with 429
// and a Retry-After hint.
func rateLimitMiddleware(l *ipLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !l.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the address the limiter keys on. Proxy headers are
// only honored when trustProxy is set, and their values must parse as
// IPs so a forged header cannot mint unlimited bucket keys. Without a
// trusted proxy the peer address is the only safe choice.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
