// apps/rooms-server/internal/httpserver/ratelimit.go
//
// Per-IP token bucket rate limiting. Mirrors the classic per-minute window
// limiter: RATE_LIMIT_RPM requests per minute per client IP, refilled
// continuously rather than in fixed windows.

package httpserver

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const defaultRPM = 100

// Buckets idle longer than this are pruned on the next sweep.
const bucketIdleTTL = 5 * time.Minute

type bucket struct {
	tokens float64
	last   time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rpm     float64
	now     func() time.Time

	lastSweep time.Time
}

// rateLimitFromEnv builds the limiter from RATE_LIMIT_RPM (default 100).
func rateLimitFromEnv() *rateLimiter {
	rpm := defaultRPM
	if v := getEnv("RATE_LIMIT_RPM", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rpm = n
		}
	}
	return newRateLimiter(rpm)
}

func newRateLimiter(rpm int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*bucket),
		rpm:     float64(rpm),
		now:     time.Now,
	}
}

// allow takes one token from key's bucket, refilling by elapsed time first.
// A fresh bucket starts full, so a new client gets a full minute's burst.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.rpm, last: now}
		rl.buckets[key] = b
	} else {
		b.tokens += now.Sub(b.last).Minutes() * rl.rpm
		if b.tokens > rl.rpm {
			b.tokens = rl.rpm
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets so the map doesn't grow with every IP ever seen.
// Caller holds rl.mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketIdleTTL {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.last) > bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
}

// wrap is the middleware form: 429 with a JSON body when the bucket is dry.
func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "60")
			http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already rewritten RemoteAddr from forwarding headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
