package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	// Max is how many requests a single client may make per window.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. The client IP is
	// used when nil.
	KeyFunc func(*http.Request) string
}

// client carries the two-bucket counters behind the sliding window
// estimate: the finished window's total and the running window's count.
type client struct {
	prevTotal   float64
	currCount   float64
	windowStart time.Time
	prevStart   time.Time
}

type rateLimiter struct {
	max     float64
	window  time.Duration
	keyFunc func(*http.Request) string

	mu      sync.Mutex
	clients map[string]*client
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIP
	}
	return &rateLimiter{
		max:     float64(cfg.Max),
		window:  cfg.Window,
		keyFunc: keyFunc,
		clients: make(map[string]*client),
	}
}

// take records one request for key and reports whether it fits the limit,
// along with the remaining budget and when the window resets.
func (rl *rateLimiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Windows live on a fixed grid so the weighting below always measures
	// the finished bucket against the boundary it actually started on.
	c, found := rl.clients[key]
	if !found {
		c = &client{windowStart: now.Truncate(rl.window)}
		rl.clients[key] = c
	}

	if age := now.Sub(c.windowStart); age >= rl.window {
		c.prevTotal = c.currCount
		c.prevStart = c.windowStart
		c.currCount = 0
		c.windowStart = now.Truncate(rl.window)
		if now.Sub(c.prevStart) >= 2*rl.window {
			// The finished window ended too long ago to matter.
			c.prevTotal = 0
		}
	}

	// Estimate the count over the sliding window by weighting the finished
	// window with the share of it the window still covers.
	weight := 1.0 - now.Sub(c.windowStart).Seconds()/rl.window.Seconds()
	if weight < 0 {
		weight = 0
	}
	inWindow := c.prevTotal*weight + c.currCount
	resetAt = c.windowStart.Add(rl.window)

	if inWindow >= rl.max {
		return 0, resetAt, false
	}

	c.currCount++
	remaining = int(rl.max - inWindow - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

// sweep drops clients that have been idle for two full windows.
func (rl *rateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, c := range rl.clients {
		if now.Sub(c.windowStart) >= 2*rl.window {
			delete(rl.clients, key)
		}
	}
}

// RateLimit returns a middleware enforcing a sliding window limit per
// client. Rejected requests get 429 with the standard error envelope, and
// every response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers.
//
// No background sweeping happens here; use RateLimitWithCleanup in servers
// that run long enough for idle clients to accumulate.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a sweeper goroutine that evicts
// idle clients every two windows until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.sweep(now)
			}
		}
	}()
	return rl.middleware()
}

func (rl *rateLimiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := rl.take(rl.keyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(int(rl.max)))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the caller's address, preferring proxy headers over the
// socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First hop in a comma separated chain is the client.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
