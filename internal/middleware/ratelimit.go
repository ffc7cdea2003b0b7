// internal/middleware/ratelimit.go
//
// Per-client token-bucket rate limiting.
//
// Context
// -------
// Every API client (by remote IP, after chi's RealIP has run) gets its own
// rate.Limiter.  Limiters live in a bounded LRU so a scan from many
// addresses cannot grow memory without limit; an evicted client simply
// starts over with a full bucket.
//
// Notes
// -----
// • rps <= 0 disables the middleware entirely.
// • Rejections are 429 with Retry-After and the registry error envelope
//   shape, so clients parse one format for every failure.

package middleware

import (
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yanizio/swregistry/internal/cache"
)

// maxClients bounds the number of tracked limiters.
const maxClients = 10000

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cache.LRU[string, *rate.Limiter]
}

// NewRateLimiter returns nil when rps <= 0.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(rps) + 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: cache.New[string, *rate.Limiter](maxClients),
	}
}

// Allow reports whether client may proceed now.
func (rl *RateLimiter) Allow(client string) bool {
	lim, _ := rl.clients.GetOrAdd(client, func() (*rate.Limiter, error) {
		return rate.NewLimiter(rl.rps, rl.burst), nil
	})
	return lim.Allow()
}

// Handler implements the middleware.  A nil receiver passes through.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	retry := strconv.Itoa(int(1/float64(rl.rps)) + 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !rl.Allow(client) {
			zap.S().Warnw("rate limit exceeded",
				"client", client,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retry)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":{"code":"429","message":"Too Many Requests"},` +
				`"error":{"code":"429","message":"rate limit exceeded"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
