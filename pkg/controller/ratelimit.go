package controller

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"multiapi/pkg/logger"
	"multiapi/pkg/metrics"
)

// RateLimitOptions allows Requests per Window for every client IP.
// A non-positive value disables limiting.
type RateLimitOptions struct {
	Requests int
	Window   time.Duration
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key. Buckets refill
// continuously at Requests/Window and hold at most Requests tokens.
type ClientLimiter struct {
	opts RateLimitOptions
	now  func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientEntry
	lastSweep time.Time
}

// NewClientLimiter creates a ClientLimiter for opts.
func NewClientLimiter(opts RateLimitOptions) *ClientLimiter {
	return &ClientLimiter{
		opts:    opts,
		now:     time.Now,
		clients: make(map[string]*clientEntry),
	}
}

func (l *ClientLimiter) enabled() bool {
	return l != nil && l.opts.Requests > 0 && l.opts.Window > 0
}

// Allow consumes one token for key. When the bucket is empty it returns false
// and the time until a token is available.
func (l *ClientLimiter) Allow(key string) (ok bool, remaining int, retryAfter time.Duration) {
	if !l.enabled() {
		return true, 0, 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	entry, found := l.clients[key]
	if !found {
		interval := l.opts.Window / time.Duration(l.opts.Requests)
		if interval <= 0 {
			interval = time.Millisecond
		}
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Every(interval), l.opts.Requests)}
		l.clients[key] = entry
	}
	entry.lastSeen = now

	res := entry.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)

		return false, 0, delay
	}

	return true, int(math.Max(0, entry.limiter.TokensAt(now))), 0
}

// sweepLocked drops buckets idle for a whole window; they would be full again anyway.
func (l *ClientLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.opts.Window {
		return
	}
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) >= l.opts.Window {
			delete(l.clients, k)
		}
	}
	l.lastSweep = now
}

// WithRateLimit returns a middleware answering 429 once a client IP exhausts
// its budget.
func WithRateLimit(l *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			ok, remaining, retryAfter := l.Allow(ip)

			w.Header().Set("RateLimit-Limit", strconv.Itoa(l.opts.Requests))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				metrics.RateLimited.Inc()
				logger.Warn(r.Context(), "rate limit exceeded", zap.String("client_ip", ip))

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				writeJSON(w, http.StatusTooManyRequests, func(e *jx.Encoder) {
					e.ObjStart()
					e.FieldStart("success")
					e.Bool(false)
					e.FieldStart("error")
					e.Str("Too many requests, please try again later")
					e.FieldStart("code")
					e.Str("RATE_LIMITED")
					e.ObjEnd()
				})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
