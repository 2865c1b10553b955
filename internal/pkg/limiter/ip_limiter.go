/*
Package limiter provides per-IP request rate limiting.

It keeps one token bucket (rate.Limiter) per client address and periodically
drops buckets that have refilled completely, so idle clients do not leak
memory.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"famhub/internal/pkg/errs"
	"famhub/internal/pkg/logx"
	"famhub/internal/pkg/resp"
)

// cleanupInterval is how often full buckets are swept out of the map.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter tracks a token bucket per client IP address.
type IPRateLimiter struct {
	mu sync.RWMutex

	// limits maps client IP to its bucket.
	limits map[string]*rate.Limiter

	// r is the sustained rate in events per second.
	r rate.Limit

	// b is the burst capacity.
	b int
}

// NewIPRateLimiter constructs an IPRateLimiter with the given rate and burst,
// and starts the background sweeper.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	l := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go l.sweep()

	return l
}

// GetLimiter returns the bucket for ip, creating it on first sight.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[ip]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists = l.limits[ip]; !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limits[ip] = limiter
	}

	return limiter
}

// sweep removes buckets that are back at full capacity. A full bucket means
// the client has been idle long enough to be indistinguishable from a new one.
func (l *IPRateLimiter) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		removed := 0
		for ip, limiter := range l.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(l.limits, ip)
				removed++
			}
		}
		remaining := len(l.limits)
		l.mu.Unlock()

		logx.Info("Rate limiter sweep finished", "removed", removed, "remaining", remaining)
	}
}

// Middleware wraps next with the rate-limit check, answering HTTP 429 when a
// client is over its budget.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !l.GetLimiter(ip).Allow() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
