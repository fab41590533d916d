package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hourstack/hourstack/internal/logger"
)

// RateLimiter throttles requests per client IP with a token bucket. The
// dashboard polls summaries and task lists aggressively, so the burst is
// sized separately from the sustained rate.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     float64 // tokens refilled per second
	burst    float64
	maxIPs   int // cap on tracked IPs, bounds memory
}

type visitor struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewRateLimiter creates a limiter with the given sustained rate (requests
// per second) and burst size.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		burst:    float64(burst),
		maxIPs:   100000,
	}
}

// Handler returns HTTP middleware enforcing the per-IP limit. Throttled
// requests get a 429 with Retry-After and are logged with the request id.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := realIP(r)
		remaining, wait, ok := rl.take(ip)

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			slog.Warn("request throttled",
				"ip", ip,
				"path", r.URL.Path,
				"request_id", logger.RequestID(r.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take refills the visitor's bucket for the elapsed time and consumes one
// token. Returns the remaining tokens, the wait until the next token when
// the bucket is empty, and whether the request may proceed.
func (rl *RateLimiter) take(ip string) (remaining int, wait time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, seen := rl.visitors[ip]
	if !seen {
		if len(rl.visitors) >= rl.maxIPs {
			// At capacity: reject rather than grow the map unbounded.
			return 0, time.Duration(float64(time.Second) / rl.rate), false
		}
		v = &visitor{tokens: rl.burst, refilled: now}
		rl.visitors[ip] = v
	} else {
		v.tokens = math.Min(rl.burst, v.tokens+now.Sub(v.refilled).Seconds()*rl.rate)
		v.refilled = now
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return 0, time.Duration((1 - v.tokens) / rl.rate * float64(time.Second)), false
	}
	v.tokens--
	return int(v.tokens), 0, true
}

// StartCleanup spawns a goroutine dropping visitors idle longer than
// maxIdle, checked every interval. The returned func stops it.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evictIdle(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// Len returns the number of tracked IPs.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// realIP takes the peer address from RemoteAddr. X-Forwarded-For and
// X-Real-Ip are deliberately ignored here: they are client-controlled and
// would let a caller dodge the limit.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
