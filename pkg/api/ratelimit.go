package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Idle client buckets are dropped after this long. Sweeps run inline, at
// most once per idle period, so no background goroutine is needed.
const clientIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// clientLimiters holds one token bucket per client IP. A bucket refills at
// requestsPerMinute and allows a burst of the same size, so a dashboard can
// fetch a full page of runs and their details at once.
type clientLimiters struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	buckets map[string]*clientBucket
	sweptAt time.Time
	now     func() time.Time
}

func newClientLimiters(requestsPerMinute int) *clientLimiters {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}

	return &clientLimiters{
		every:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   requestsPerMinute,
		buckets: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// reserve takes a token for ip. When none is available it returns false and
// the wait until the next token.
func (c *clientLimiters) reserve(ip string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if now.Sub(c.sweptAt) >= clientIdleTTL {
		for k, b := range c.buckets {
			if now.Sub(b.seen) >= clientIdleTTL {
				delete(c.buckets, k)
			}
		}

		c.sweptAt = now
	}

	b, ok := c.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(c.every, c.burst)}
		c.buckets[ip] = b
	}

	b.seen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)

		return false, delay
	}

	return true, 0
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.buckets)
}

// limitRuns rejects /runs requests over the per-client budget with 429 and
// a Retry-After hint in whole seconds.
func (s *server) limitRuns(limiters *clientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiters.reserve(extractIP(r))
			if !ok {
				secs := int(wait.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}

				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{"rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP returns the client's IP address from the request.
func extractIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
